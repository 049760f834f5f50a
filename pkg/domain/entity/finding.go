package entity

import "time"

// FindingKind classifies a finding
type FindingKind string

const (
	// KindVulnerable means the observed version is inside the configured vulnerable range
	KindVulnerable FindingKind = "vulnerable"
	// KindMisconfig means the server discloses its version although it is not vulnerable
	KindMisconfig FindingKind = "misconfig"
)

// ModuleResult is the outcome of one follow-up module run
type ModuleResult struct {
	Name     string `json:"name"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

// Finding represents a matched target rule for one URL
type Finding struct {
	URL       string         `json:"url"`
	Target    string         `json:"target"`
	Server    string         `json:"server"`
	Version   string         `json:"version"`
	Kind      FindingKind    `json:"kind"`
	Modules   []ModuleResult `json:"modules,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
