package fingerprint

import (
	"net/http"
	"strings"

	"github.com/WangYihang/lazyscan/pkg/domain/version"
)

// Family is the server software family a target belongs to
type Family int

const (
	// FamilyGeneric matches any software by an explicit header prefix
	FamilyGeneric Family = iota
	// FamilyApache matches Apache httpd
	FamilyApache
	// FamilyNginx matches nginx
	FamilyNginx
)

func (f Family) String() string {
	switch f {
	case FamilyApache:
		return "apache"
	case FamilyNginx:
		return "nginx"
	default:
		return "generic"
	}
}

// prefix returns the product token the family uses in the Server header
func (f Family) prefix() string {
	switch f {
	case FamilyApache:
		return "Apache"
	case FamilyNginx:
		return "nginx"
	default:
		return ""
	}
}

// FamilyOf maps a configured target name to its family
func FamilyOf(name string) Family {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "apache", "httpd":
		return FamilyApache
	case "nginx":
		return FamilyNginx
	default:
		return FamilyGeneric
	}
}

// Rule is the configured form of a target
type Rule struct {
	Version   string
	Modules   []string
	Misconfig bool
	// Server overrides the Server header product token
	Server string
}

// Target is an immutable fingerprint rule
type Target struct {
	name      string
	family    Family
	server    string
	spec      version.Version
	modules   []string
	misconfig bool
}

// NewTarget builds a target. It returns false when the name belongs to no
// known family and the rule gives no Server prefix.
func NewTarget(name string, rule Rule) (Target, bool) {
	family := FamilyOf(name)
	server := rule.Server
	if server == "" {
		server = family.prefix()
	}
	if server == "" {
		return Target{}, false
	}

	return Target{
		name:      strings.ToLower(strings.TrimSpace(name)),
		family:    family,
		server:    server,
		spec:      version.Parse(rule.Version),
		modules:   append([]string(nil), rule.Modules...),
		misconfig: rule.Misconfig,
	}, true
}

// Name returns the lower-cased target name
func (t Target) Name() string {
	return t.name
}

// Family returns the software family
func (t Target) Family() Family {
	return t.family
}

// Specification returns the vulnerable version specification
func (t Target) Specification() version.Version {
	return t.spec
}

// Modules returns the follow-up modules run on a match
func (t Target) Modules() []string {
	return append([]string(nil), t.modules...)
}

// Misconfig reports whether version disclosure is reported
func (t Target) Misconfig() bool {
	return t.misconfig
}

// Observe extracts the version this target's software announces in header.
// It returns false when the header is missing, belongs to other software
// or carries no parseable version.
func (t Target) Observe(header http.Header) (string, version.Version, bool) {
	value := header.Get("Server")
	if value == "" {
		return "", version.Version{}, false
	}

	rest, ok := strings.CutPrefix(value, t.server+"/")
	if !ok {
		return "", version.Version{}, false
	}

	text, _, _ := strings.Cut(rest, " ")
	observed := version.Parse(text)
	if observed.IsZero() {
		return "", version.Version{}, false
	}
	return text, observed, true
}

// Scan reports whether header announces a version inside the vulnerable
// specification
func (t Target) Scan(header http.Header) bool {
	_, observed, ok := t.Observe(header)
	return ok && t.spec.Contains(observed)
}
