package input

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.txt")

	testData := `
example.com
# comment
https://test.org/login
  spaces.com:8080  
`
	if err := os.WriteFile(path, []byte(testData), 0o644); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	l := NewLoader()
	urls, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	expected := []string{"http://example.com", "https://test.org/login", "http://spaces.com:8080"}
	if !reflect.DeepEqual(urls, expected) {
		t.Errorf("Load = %v, want %v", urls, expected)
	}
}

func TestLoaderLoadMissing(t *testing.T) {
	if _, err := NewLoader().Load(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Errorf("Load of a missing file should fail")
	}
}

func TestLoaderNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a.com", "http://a.com"},
		{"//a.com/x", "http://a.com/x"},
		{"http://a.com", "http://a.com"},
		{"ftp://a.com", "ftp://a.com"},
	}

	l := NewLoader()
	for _, tt := range tests {
		if got := l.Normalize(tt.input); got != tt.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
