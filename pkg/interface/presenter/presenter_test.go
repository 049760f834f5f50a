package presenter

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
)

func TestProgress_Layers(t *testing.T) {
	p := NewProgress(io.Discard, "layer")

	p.OnLayerStart(0, 3)
	bar := p.bar
	for i := 0; i < 2; i++ {
		p.OnURLProcessed(entity.JobResult{Layer: 0, Duration: time.Millisecond})
	}
	if got := bar.Current(); got != 2 {
		t.Errorf("Current() = %d, want 2", got)
	}

	// a layer cut short still completes its bar
	p.OnLayerDone(0)
	if !bar.Completed() {
		t.Errorf("bar should be completed after OnLayerDone")
	}

	p.OnLayerStart(1, 1)
	p.OnURLProcessed(entity.JobResult{Layer: 1})
	p.OnLayerDone(1)

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Wait() did not return")
	}
}

func TestProgress_URLWithoutLayer(t *testing.T) {
	p := NewProgress(io.Discard, "page")
	p.OnURLProcessed(entity.JobResult{})
	p.OnLayerDone(0)
	p.Wait()
}

func TestProgress_WriterWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "layer")

	if _, err := io.WriteString(p.Writer(), "fetch failed\n"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	p.Wait()

	if buf.String() != "fetch failed\n" {
		t.Errorf("output = %q, lines should pass straight through without a terminal", buf.String())
	}
}

func TestConsole_Report(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	err := c.Report(entity.Finding{
		URL:     "http://a.com",
		Target:  "apache",
		Version: "2.4.49",
		Kind:    entity.KindVulnerable,
		Modules: []entity.ModuleResult{{Name: "a", ExitCode: 0}, {Name: "b", Error: "not found"}},
	})
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	line := buf.String()
	for _, want := range []string{"[vulnerable]", "apache", "2.4.49", "http://a.com", "a=0", "b=error"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q does not contain %q", line, want)
		}
	}
	if strings.Count(line, "\n") != 1 {
		t.Errorf("line %q should end with one newline", line)
	}
}

func TestRender_Misconfig(t *testing.T) {
	got := Render(entity.Finding{URL: "http://b.com", Target: "nginx", Version: "1.20.1", Kind: entity.KindMisconfig})
	if !strings.Contains(got, "[misconfig]") || strings.Contains(got, "(") {
		t.Errorf("Render() = %q", got)
	}
}
