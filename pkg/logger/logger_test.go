package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}

	if _, err := New(Config{Level: "loud"}, &buf); err == nil {
		t.Errorf("unknown level should be rejected")
	}
}

func TestLogger_FileAndRedirect(t *testing.T) {
	var buf, above bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "lazyscan.log")
	l, err := New(Config{File: path}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Redirect(&above)
	l.WithField("url", "http://a.com").Warn("fetch failed")
	if buf.Len() != 0 {
		t.Errorf("redirected terminal received %q", buf.String())
	}
	if !strings.Contains(above.String(), "fetch failed") {
		t.Errorf("redirect target = %q", above.String())
	}
	l.Resume()
	l.Info("resumed")
	if !strings.Contains(buf.String(), "resumed") {
		t.Errorf("terminal output = %q", buf.String())
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("log file has %d lines, want 2", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if entry["msg"] != "fetch failed" || entry["url"] != "http://a.com" || entry["level"] != logrus.WarnLevel.String() {
		t.Errorf("entry = %v", entry)
	}
}
