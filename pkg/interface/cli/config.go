package cli

import (
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Options holds the command line options
type Options struct {
	Output      string `short:"o" long:"output" description:"Findings file (JSON lines), - for stdout" default:"findings.jsonl"`
	LogLevel    string `long:"log-level" description:"Log level" default:"info" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	MetricsAddr string `long:"metrics-addr" description:"Serve Prometheus metrics on this address, e.g. :2112"`
	NoProgress  bool   `long:"no-progress" description:"Do not draw progress bars"`
	APIKey      string `long:"api-key" env:"API_KEY" description:"Shodan API key"`
	Version     bool   `short:"V" long:"version" description:"Print version and exit"`

	Args struct {
		Config string `positional-arg-name:"CONFIG" description:"Configuration file (YAML)"`
	} `positional-args:"yes"`
}

// ParseFlags parses command line arguments. Help output is reported as a
// flags error of type flags.ErrHelp.
func ParseFlags(args []string) (*Options, error) {
	options := &Options{}

	parser := flags.NewParser(options, flags.Default)
	parser.Name = "lazyscan"
	parser.Usage = "[OPTIONS] CONFIG"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

// Validate validates the options
func (o *Options) Validate() error {
	if o.Version {
		return nil
	}
	if o.Args.Config == "" {
		return fmt.Errorf("the required argument CONFIG was not provided")
	}
	if o.Output == "" {
		return fmt.Errorf("output must not be empty")
	}
	return nil
}
