package common

import (
	"strings"
	"testing"
)

func TestTerminalWidth(t *testing.T) {
	if w := TerminalWidth(); w <= 0 {
		t.Errorf("TerminalWidth() = %d, want a positive width", w)
	}
}

func TestProgramVersion(t *testing.T) {
	v := ProgramVersion{Version: "1.2.3", CommitHash: "abc", BuildTime: "2024-01-01"}

	if got := v.Short(); got != "v1.2.3-abc-2024-01-01" {
		t.Errorf("Short() = %q", got)
	}
	if got := v.String(); !strings.Contains(got, "Version: v1.2.3") || !strings.Contains(got, "Commit: abc") {
		t.Errorf("String() = %q", got)
	}
}
