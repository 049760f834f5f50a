package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
	"github.com/WangYihang/lazyscan/pkg/domain/service"
	"github.com/sirupsen/logrus"
)

// Reporter receives findings
type Reporter interface {
	Report(finding entity.Finding) error
}

// Scanner applies every target rule to fetched responses. It keeps no per
// request state and is shared by all workers.
type Scanner struct {
	targets   []Target
	reporters []Reporter
	runner    service.ModuleRunner
	logger    logrus.FieldLogger
}

// Option configures a Scanner
type Option func(*Scanner)

// WithReporter adds a finding reporter
func WithReporter(r Reporter) Option {
	return func(s *Scanner) {
		s.reporters = append(s.reporters, r)
	}
}

// WithModuleRunner sets the runner used for follow-up modules
func WithModuleRunner(r service.ModuleRunner) Option {
	return func(s *Scanner) {
		s.runner = r
	}
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// NewScanner builds a scanner from the configured rules, ordered by name.
// Rules that map to no known target are skipped.
func NewScanner(rules map[string]Rule, opts ...Option) *Scanner {
	s := &Scanner{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target, ok := NewTarget(name, rules[name])
		if !ok {
			s.logger.WithField("target", name).Debug("skipping unknown target")
			continue
		}
		s.targets = append(s.targets, target)
	}
	return s
}

// Targets returns the rules in scan order
func (s *Scanner) Targets() []Target {
	return append([]Target(nil), s.targets...)
}

// Scan applies every target to the response header of url. Findings are
// passed to the reporters and returned. The error joins reporter and module
// failures; a finding is still returned when they occur.
func (s *Scanner) Scan(ctx context.Context, url string, header http.Header) ([]entity.Finding, error) {
	var findings []entity.Finding
	var errs []error

	for _, target := range s.targets {
		text, observed, ok := target.Observe(header)
		if !ok {
			continue
		}

		finding := entity.Finding{
			URL:       url,
			Target:    target.Name(),
			Server:    header.Get("Server"),
			Version:   text,
			Timestamp: time.Now(),
		}

		switch {
		case target.Specification().Contains(observed):
			finding.Kind = entity.KindVulnerable
			results, err := s.runModules(ctx, target, url)
			if err != nil {
				errs = append(errs, err)
			}
			finding.Modules = results
		case target.Misconfig():
			finding.Kind = entity.KindMisconfig
		default:
			continue
		}

		for _, r := range s.reporters {
			if err := r.Report(finding); err != nil {
				errs = append(errs, fmt.Errorf("report %s for %s: %w", target.Name(), url, err))
			}
		}
		findings = append(findings, finding)
	}

	return findings, errors.Join(errs...)
}

func (s *Scanner) runModules(ctx context.Context, target Target, url string) ([]entity.ModuleResult, error) {
	if s.runner == nil || len(target.modules) == 0 {
		return nil, nil
	}

	var errs []error
	results := make([]entity.ModuleResult, 0, len(target.modules))
	for _, module := range target.modules {
		code, err := s.runner.Run(ctx, target.Name(), module, url)
		result := entity.ModuleResult{Name: module, ExitCode: code}
		log := s.logger.WithFields(logrus.Fields{
			"target": target.Name(),
			"module": module,
			"url":    url,
		})

		if err != nil {
			result.Error = err.Error()
			errs = append(errs, fmt.Errorf("run module %s/%s: %w", target.Name(), module, err))
			log.WithError(err).Error("module failed to run")
		} else if code != 0 {
			log.WithField("exit_code", code).Warn("module exited with failure")
		} else {
			log.Info("module succeeded")
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}
