// Package config loads the YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/WangYihang/lazyscan/pkg/domain/fingerprint"
	"github.com/WangYihang/lazyscan/pkg/domain/version"
	"gopkg.in/yaml.v3"
)

// Queue kinds
const (
	QueueMemory = "memory"
	QueueFile   = "file"
)

// Dedup kinds
const (
	DedupExact = "exact"
	DedupBloom = "bloom"
)

// Source kinds
const (
	SourceCrawler = "crawler"
	SourceFile    = "file"
	SourceShodan  = "shodan"
)

// Config holds all configuration
type Config struct {
	General General           `yaml:"general"`
	Source  Source            `yaml:"source"`
	Targets map[string]Target `yaml:"targets"`
	Modules Modules           `yaml:"modules"`
}

// General holds settings shared by every source
type General struct {
	Threads int `yaml:"threads"`
	// Timeout is the per fetch timeout in seconds
	Timeout     int     `yaml:"timeout"`
	Log         string  `yaml:"log"`
	UserAgent   string  `yaml:"user_agent"`
	Rate        float64 `yaml:"rate"`
	MaxBodySize int64   `yaml:"max_body_size"`
}

// Source selects where URLs come from. Exactly one field is set.
type Source struct {
	Crawler *CrawlerSource `yaml:"crawler"`
	File    *FileSource    `yaml:"file"`
	Shodan  *ShodanSource  `yaml:"shodan"`
}

// CrawlerSource crawls outward from seed URLs
type CrawlerSource struct {
	Queue              string   `yaml:"queue"`
	Dedup              string   `yaml:"dedup"`
	Dir                string   `yaml:"dir"`
	Seeds              []string `yaml:"seeds"`
	MaxDepth           int      `yaml:"max_depth"`
	BloomSize          uint     `yaml:"bloom_size"`
	BloomFalsePositive float64  `yaml:"bloom_false_positive"`
}

// FileSource reads targets from a file
type FileSource struct {
	Path string `yaml:"path"`
}

// ShodanSource scans the results of a Shodan host search
type ShodanSource struct {
	Query    string `yaml:"query"`
	MaxPages int    `yaml:"max_pages"`
	BaseURL  string `yaml:"base_url"`
}

// Target is the configured rule of one server software
type Target struct {
	Version   string   `yaml:"version"`
	Modules   []string `yaml:"modules"`
	Misconfig bool     `yaml:"misconfig"`
	Server    string   `yaml:"server"`
}

// Modules configures follow-up modules
type Modules struct {
	Dir string `yaml:"dir"`
	// Timeout is the per module timeout in seconds, 0 for none
	Timeout int `yaml:"timeout"`
}

// Load reads, completes and validates the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Parse decodes a configuration document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	config := &Config{}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.General.Threads == 0 {
		c.General.Threads = 16
	}
	if c.General.Timeout == 0 {
		c.General.Timeout = 10
	}
	if c.General.MaxBodySize == 0 {
		c.General.MaxBodySize = 10 * 1024 * 1024
	}
	if c.Modules.Dir == "" {
		c.Modules.Dir = "modules"
	}
	if c.Modules.Timeout == 0 {
		c.Modules.Timeout = 60
	}

	if crawler := c.Source.Crawler; crawler != nil {
		if crawler.Queue == "" {
			crawler.Queue = QueueMemory
		}
		if crawler.Dedup == "" {
			crawler.Dedup = DedupExact
		}
		if crawler.Dir == "" {
			crawler.Dir = ".lazyscan"
		}
		if crawler.BloomSize == 0 {
			crawler.BloomSize = 1_000_000
		}
		if crawler.BloomFalsePositive == 0 {
			crawler.BloomFalsePositive = 0.001
		}
	}
}

// Validate reports the first problem of the configuration
func (c *Config) Validate() error {
	if c.General.Threads <= 0 {
		return fmt.Errorf("general.threads must be positive, got %d", c.General.Threads)
	}
	if c.General.Timeout <= 0 {
		return fmt.Errorf("general.timeout must be positive, got %d", c.General.Timeout)
	}
	if c.General.Rate < 0 {
		return fmt.Errorf("general.rate must not be negative")
	}
	if c.Modules.Timeout < 0 {
		return fmt.Errorf("modules.timeout must not be negative")
	}

	if len(c.Targets) == 0 {
		return fmt.Errorf("no targets configured")
	}
	for _, name := range c.targetNames() {
		target := c.Targets[name]
		if err := version.Check(target.Version); err != nil {
			return fmt.Errorf("targets.%s: unparseable version %w", name, err)
		}
	}

	kinds := 0
	if crawler := c.Source.Crawler; crawler != nil {
		kinds++
		switch crawler.Queue {
		case QueueMemory, QueueFile:
		default:
			return fmt.Errorf("source.crawler.queue: unknown queue %q", crawler.Queue)
		}
		switch crawler.Dedup {
		case DedupExact, DedupBloom:
		default:
			return fmt.Errorf("source.crawler.dedup: unknown dedup %q", crawler.Dedup)
		}
		if len(crawler.Seeds) == 0 {
			return fmt.Errorf("source.crawler.seeds: no seeds")
		}
		if crawler.MaxDepth < 0 {
			return fmt.Errorf("source.crawler.max_depth must not be negative")
		}
		if crawler.BloomFalsePositive <= 0 || crawler.BloomFalsePositive >= 1 {
			return fmt.Errorf("source.crawler.bloom_false_positive must be in (0, 1)")
		}
	}
	if file := c.Source.File; file != nil {
		kinds++
		if file.Path == "" {
			return fmt.Errorf("source.file.path: empty path")
		}
	}
	if shodan := c.Source.Shodan; shodan != nil {
		kinds++
		if shodan.Query == "" {
			return fmt.Errorf("source.shodan.query: empty query")
		}
		if shodan.MaxPages < 0 {
			return fmt.Errorf("source.shodan.max_pages must not be negative")
		}
	}
	if kinds != 1 {
		return fmt.Errorf("exactly one source must be configured, got %d", kinds)
	}
	return nil
}

func (c *Config) targetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SourceKind returns the kind of the configured source
func (c *Config) SourceKind() string {
	switch {
	case c.Source.Crawler != nil:
		return SourceCrawler
	case c.Source.File != nil:
		return SourceFile
	case c.Source.Shodan != nil:
		return SourceShodan
	default:
		return ""
	}
}

// FetchTimeout returns the per fetch timeout
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.General.Timeout) * time.Second
}

// ModuleTimeout returns the per module timeout
func (c *Config) ModuleTimeout() time.Duration {
	return time.Duration(c.Modules.Timeout) * time.Second
}

// Rules returns the target table in the form the scanner is built from
func (c *Config) Rules() map[string]fingerprint.Rule {
	rules := make(map[string]fingerprint.Rule, len(c.Targets))
	for name, target := range c.Targets {
		rules[name] = fingerprint.Rule{
			Version:   target.Version,
			Modules:   target.Modules,
			Misconfig: target.Misconfig,
			Server:    target.Server,
		}
	}
	return rules
}
