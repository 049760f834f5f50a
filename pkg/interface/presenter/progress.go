package presenter

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/WangYihang/lazyscan/pkg/common"
	"github.com/WangYihang/lazyscan/pkg/domain/entity"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/cwriter"
	"github.com/vbauerster/mpb/v8/decor"
)

// Progress renders one bar per layer. It implements application.Observer.
type Progress struct {
	progress *mpb.Progress
	label    string
	out      io.Writer
	// live is set when out is a terminal; mpb only draws bars there
	live bool

	mu  sync.Mutex
	bar *mpb.Bar
}

// NewProgress creates a progress display on out. label names a layer, such
// as "layer" for a crawl or "page" for a host search.
func NewProgress(out io.Writer, label string) *Progress {
	width := common.TerminalWidth() / 3
	if width < 20 {
		width = 20
	}

	live := false
	if f, ok := out.(*os.File); ok {
		live = cwriter.IsTerminal(int(f.Fd()))
	}

	return &Progress{
		progress: mpb.New(mpb.WithOutput(out), mpb.WithWidth(width)),
		label:    label,
		out:      out,
		live:     live,
	}
}

// OnLayerStart adds a bar for the layer
func (p *Progress) OnLayerStart(layer, size int) {
	bar := p.progress.AddBar(int64(size),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("%s %d", p.label, layer), decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("[%d / %d]", decor.WCSyncWidth),
			decor.Percentage(decor.WCSyncSpace),
			decor.OnComplete(
				decor.EwmaETA(decor.ET_STYLE_GO, 30, decor.WCSyncSpace), "done",
			),
		),
	)

	p.mu.Lock()
	p.bar = bar
	p.mu.Unlock()
}

// OnURLProcessed advances the current bar
func (p *Progress) OnURLProcessed(result entity.JobResult) {
	p.mu.Lock()
	bar := p.bar
	p.mu.Unlock()

	if bar != nil {
		bar.EwmaIncrement(result.Duration)
	}
}

// OnLayerDone completes the current bar, also when the layer was cut short
func (p *Progress) OnLayerDone(int) {
	p.mu.Lock()
	bar := p.bar
	p.bar = nil
	p.mu.Unlock()

	if bar != nil {
		bar.SetTotal(-1, true)
	}
}

// Writer returns a writer whose lines are printed above the bars. Without
// a terminal no bars are drawn and lines go straight to the output.
func (p *Progress) Writer() io.Writer {
	if p.live {
		return p.progress
	}
	return p.out
}

// Wait flushes the display. No layer may start afterwards.
func (p *Progress) Wait() {
	p.progress.Wait()
}
