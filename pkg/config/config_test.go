package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const crawlerConfig = `
general:
  threads: 8
  timeout: 5
  log: lazyscan.log
source:
  crawler:
    queue: file
    dir: /tmp/lazyscan
    seeds:
      - http://example.com
targets:
  apache:
    version: 2.4.49
    modules: [cve_2021_41773]
  nginx:
    version: 1.18.0
    misconfig: true
`

func TestParse_Crawler(t *testing.T) {
	c, err := Parse([]byte(crawlerConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if c.General.Threads != 8 || c.FetchTimeout() != 5*time.Second {
		t.Errorf("general = %+v", c.General)
	}
	if c.SourceKind() != SourceCrawler {
		t.Errorf("SourceKind() = %q, want crawler", c.SourceKind())
	}
	crawler := c.Source.Crawler
	if crawler.Queue != QueueFile || crawler.Dedup != DedupExact || crawler.MaxDepth != 0 {
		t.Errorf("crawler = %+v", crawler)
	}
	if c.Modules.Dir != "modules" || c.ModuleTimeout() != time.Minute {
		t.Errorf("modules = %+v", c.Modules)
	}

	rules := c.Rules()
	if len(rules) != 2 || rules["apache"].Modules[0] != "cve_2021_41773" || !rules["nginx"].Misconfig {
		t.Errorf("Rules() = %+v", rules)
	}
}

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte(`
source:
  shodan:
    query: apache
targets:
  apache:
    version: 2.4.46-2.4.52
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.General.Threads != 16 || c.General.Timeout != 10 || c.General.MaxBodySize != 10*1024*1024 {
		t.Errorf("general defaults = %+v", c.General)
	}
	if c.SourceKind() != SourceShodan {
		t.Errorf("SourceKind() = %q, want shodan", c.SourceKind())
	}
}

func TestParse_Invalid(t *testing.T) {
	target := "targets:\n  apache:\n    version: 2.4.49\n"
	seeds := "source:\n  crawler:\n    seeds: [http://a.com]\n"

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"negative threads", "general:\n  threads: -1\n" + seeds + target, "threads"},
		{"negative timeout", "general:\n  timeout: -3\n" + seeds + target, "timeout"},
		{"no targets", seeds, "no targets"},
		{"unparseable version", seeds + "targets:\n  apache:\n    version: latest\n", "unparseable version"},
		{"unaligned span", seeds + "targets:\n  apache:\n    version: 2.4.46-3.0.1\n", "leading component"},
		{"unknown queue", "source:\n  crawler:\n    queue: redis\n    seeds: [http://a.com]\n" + target, "unknown queue"},
		{"unknown dedup", "source:\n  crawler:\n    dedup: fuzzy\n    seeds: [http://a.com]\n" + target, "unknown dedup"},
		{"no seeds", "source:\n  crawler:\n    queue: memory\n" + target, "no seeds"},
		{"no source", target, "exactly one source"},
		{"two sources", seeds + "  file:\n    path: urls.txt\n" + target, "exactly one source"},
		{"empty file path", "source:\n  file:\n    path: \"\"\n" + target, "empty path"},
		{"unknown key", seeds + target + "extra: 1\n", "extra"},
		{"malformed yaml", "general: [", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatalf("Parse() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazyscan.yaml")
	if err := os.WriteFile(path, []byte(crawlerConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err != nil {
		t.Errorf("Load() error = %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Load() of a missing file should fail")
	}
}

func TestLoad_Example(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "configs", "lazyscan.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.SourceKind() != SourceCrawler || c.Source.Crawler.Dedup != DedupBloom {
		t.Errorf("source = %+v", c.Source.Crawler)
	}
	if len(c.Rules()) != 2 {
		t.Errorf("Rules() = %+v", c.Rules())
	}
}
