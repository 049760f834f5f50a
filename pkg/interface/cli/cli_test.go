package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/WangYihang/lazyscan/pkg/config"
	"github.com/WangYihang/lazyscan/pkg/domain/entity"
	"github.com/WangYihang/lazyscan/pkg/logger"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("API_KEY", "from-env")

	options, err := ParseFlags([]string{"-o", "out.jsonl", "--no-progress", "lazyscan.yaml"})
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if options.Args.Config != "lazyscan.yaml" || options.Output != "out.jsonl" || !options.NoProgress {
		t.Errorf("options = %+v", options)
	}
	if options.LogLevel != "info" || options.APIKey != "from-env" {
		t.Errorf("defaults = %q %q", options.LogLevel, options.APIKey)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	if _, err := ParseFlags(nil); err == nil {
		t.Errorf("missing CONFIG should be an error")
	}
	if _, err := ParseFlags([]string{"--log-level", "loud", "c.yaml"}); err == nil {
		t.Errorf("invalid log level should be an error")
	}
	if options, err := ParseFlags([]string{"--version"}); err != nil || !options.Version {
		t.Errorf("--version without CONFIG = %+v, %v", options, err)
	}

	_, err := ParseFlags([]string{"--help"})
	if !flags.WroteHelp(err) {
		t.Errorf("--help error = %v, want a help error", err)
	}
}

func serve(server string, pages map[string]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", server)
		fmt.Fprint(w, pages[r.URL.Path])
	})
}

func newTarget(t *testing.T, server string, pages map[string]string) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(serve(server, pages))
	t.Cleanup(ts.Close)
	return ts
}

func readFindings(t *testing.T, path string) []entity.Finding {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var findings []entity.Finding
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var f entity.Finding
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			t.Fatalf("Unmarshal(%q) error = %v", line, err)
		}
		findings = append(findings, f)
	}
	return findings
}

func run(t *testing.T, document string, options *Options) (*App, string) {
	t.Helper()

	cfg, err := config.Parse([]byte(document))
	if err != nil {
		t.Fatalf("config.Parse() error = %v", err)
	}
	log, err := logger.New(logger.Config{Level: "debug"}, io.Discard)
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}

	var stdout bytes.Buffer
	assembler := NewAssembler(options, cfg, log)
	assembler.Stdout = &stdout
	assembler.Stderr = io.Discard

	app, err := assembler.Assemble()
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return app, stdout.String()
}

func TestAssembler_Crawler(t *testing.T) {
	// only absolute https links leave the current domain
	other := httptest.NewTLSServer(serve("Apache/2.4.49", map[string]string{"/": `<a href="/about">same domain</a>`}))
	defer other.Close()
	target := newTarget(t, "Apache/2.4.49 (Unix)", map[string]string{"/": `<a href="` + other.URL + `/">next</a>`})
	for _, queue := range []string{config.QueueMemory, config.QueueFile} {
		t.Run(queue, func(t *testing.T) {
			output := filepath.Join(t.TempDir(), "findings.jsonl")
			document := fmt.Sprintf(`
general:
  threads: 2
  timeout: 5
source:
  crawler:
    queue: %s
    dedup: bloom
    dir: %s
    seeds: [%s/]
targets:
  apache:
    version: 2.4.46-2.4.52
  nginx:
    version: 1.18.0
`, queue, filepath.Join(t.TempDir(), "queue"), target.URL)

			app, stdout := run(t, document, &Options{Output: output, NoProgress: true})

			findings := readFindings(t, output)
			if len(findings) != 2 {
				t.Fatalf("findings = %+v, want one per domain", findings)
			}
			urls := map[string]bool{}
			for _, f := range findings {
				urls[f.URL] = true
				if f.Target != "apache" || f.Kind != entity.KindVulnerable || f.Version != "2.4.49" {
					t.Errorf("finding = %+v", f)
				}
			}
			if !urls[target.URL+"/"] || !urls[other.URL+"/"] {
				t.Errorf("finding urls = %v", urls)
			}
			if !strings.Contains(stdout, "[vulnerable]") {
				t.Errorf("console output = %q", stdout)
			}
			if got := testutil.CollectAndCount(app.Metrics().Registry(), "lazyscan_findings_total"); got != 1 {
				t.Errorf("findings_total series = %d, want 1", got)
			}
		})
	}
}

func TestAssembler_File(t *testing.T) {
	target := newTarget(t, "nginx/1.20.1", map[string]string{"/": `<a href="https://elsewhere.invalid/">x</a>`})
	dir := t.TempDir()
	list := filepath.Join(dir, "targets.txt")
	host := strings.TrimPrefix(target.URL, "http://")
	if err := os.WriteFile(list, []byte("# targets\n"+host+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "findings.jsonl")

	document := fmt.Sprintf(`
source:
  file:
    path: %s
targets:
  nginx:
    version: 1.18.0
    misconfig: true
`, list)

	run(t, document, &Options{Output: output, NoProgress: true})

	findings := readFindings(t, output)
	if len(findings) != 1 || findings[0].Kind != entity.KindMisconfig {
		t.Errorf("findings = %+v, want one misconfig", findings)
	}
}

func TestAssembler_Shodan(t *testing.T) {
	var port int
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/shodan/host/search" && r.URL.Query().Get("page") == "1":
			fmt.Fprintf(w, `{"matches":[{"ip_str":"127.0.0.1","port":%d}]}`, port)
		case r.URL.Path == "/shodan/host/search":
			fmt.Fprint(w, `{"error":"No information available"}`)
		default:
			w.Header().Set("Server", "Apache/2.4.50")
		}
	}))
	defer api.Close()
	_, p, _ := net.SplitHostPort(strings.TrimPrefix(api.URL, "http://"))
	port, _ = strconv.Atoi(p)

	output := filepath.Join(t.TempDir(), "findings.jsonl")
	document := fmt.Sprintf(`
source:
  shodan:
    query: apache
    base_url: %s
targets:
  apache:
    version: 2.4.50
`, api.URL)

	run(t, document, &Options{Output: output, NoProgress: true, APIKey: "secret"})

	findings := readFindings(t, output)
	if len(findings) != 1 || findings[0].URL != api.URL {
		t.Errorf("findings = %+v, want one for %s", findings, api.URL)
	}
}

func TestAssembler_ShodanNeedsKey(t *testing.T) {
	cfg, err := config.Parse([]byte("source:\n  shodan:\n    query: apache\ntargets:\n  apache:\n    version: 2.4.49\n"))
	if err != nil {
		t.Fatal(err)
	}
	log, _ := logger.New(logger.Config{}, io.Discard)

	options := &Options{Output: filepath.Join(t.TempDir(), "f.jsonl"), NoProgress: true}
	if _, err := NewAssembler(options, cfg, log).Assemble(); err == nil {
		t.Errorf("Assemble() without an API key should fail")
	}
}

func TestAssembler_NoKnownTarget(t *testing.T) {
	cfg, err := config.Parse([]byte("source:\n  crawler:\n    seeds: [http://a.com]\ntargets:\n  tomcat:\n    version: 9.0.1\n"))
	if err != nil {
		t.Fatal(err)
	}
	log, _ := logger.New(logger.Config{}, io.Discard)

	options := &Options{Output: filepath.Join(t.TempDir(), "f.jsonl"), NoProgress: true}
	if _, err := NewAssembler(options, cfg, log).Assemble(); err == nil {
		t.Errorf("Assemble() with only unknown targets should fail")
	}
}

func TestAssembler_LogsAboveProgress(t *testing.T) {
	cfg, err := config.Parse([]byte(`
general:
  threads: 1
  timeout: 2
source:
  crawler:
    seeds: [http://127.0.0.1:1/]
targets:
  apache:
    version: 2.4.49
`))
	if err != nil {
		t.Fatal(err)
	}

	var terminal, stderr bytes.Buffer
	log, err := logger.New(logger.Config{}, &terminal)
	if err != nil {
		t.Fatal(err)
	}

	options := &Options{Output: filepath.Join(t.TempDir(), "f.jsonl")}
	assembler := NewAssembler(options, cfg, log)
	assembler.Stdout = io.Discard
	assembler.Stderr = &stderr

	app, err := assembler.Assemble()
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !strings.Contains(stderr.String(), "fetch failed") {
		t.Errorf("progress output = %q, want the fetch failure logged", stderr.String())
	}
	if strings.Contains(terminal.String(), "fetch failed") {
		t.Errorf("terminal output = %q, the failure should go through the progress writer", terminal.String())
	}

	log.Info("after run")
	if !strings.Contains(terminal.String(), "after run") {
		t.Errorf("terminal output should be restored after Run, got %q", terminal.String())
	}
}
