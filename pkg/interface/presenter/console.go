package presenter

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
	"github.com/charmbracelet/lipgloss"
)

var (
	vulnerableStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
	misconfigStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F4D35E"))
	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999"))
)

// Console prints findings, one line each. It implements fingerprint.Reporter.
type Console struct {
	out io.Writer
	mu  sync.Mutex
}

// NewConsole creates a console reporter on out
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Report prints the finding
func (c *Console) Report(finding entity.Finding) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintln(c.out, Render(finding))
	return err
}

// Render formats a finding as
// [kind] target version url (module=exit ...)
func Render(finding entity.Finding) string {
	style := misconfigStyle
	if finding.Kind == entity.KindVulnerable {
		style = vulnerableStyle
	}

	parts := []string{
		style.Render("[" + string(finding.Kind) + "]"),
		finding.Target,
		finding.Version,
		urlStyle.Render(finding.URL),
	}

	if len(finding.Modules) > 0 {
		results := make([]string, 0, len(finding.Modules))
		for _, m := range finding.Modules {
			if m.Error != "" {
				results = append(results, m.Name+"=error")
				continue
			}
			results = append(results, fmt.Sprintf("%s=%d", m.Name, m.ExitCode))
		}
		parts = append(parts, dimStyle.Render("("+strings.Join(results, " ")+")"))
	}
	return strings.Join(parts, " ")
}
