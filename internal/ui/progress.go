package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

type fileProgress struct {
	total uint64
	done  uint64
}

// ProgressDisplay renders a batch as one progress bar over the total byte count
// and prints a line per file once it is finalized
type ProgressDisplay struct {
	operation string
	out       io.Writer

	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	files    map[string]*fileProgress
	total    uint64
	finished int
	failed   int
	start    time.Time
}

// NewProgressDisplay creates a display writing to stderr. operation is shown in
// the bar description, e.g. "Uploading".
func NewProgressDisplay(operation string) *ProgressDisplay {
	return NewProgressDisplayTo(operation, os.Stderr)
}

// NewProgressDisplayTo is NewProgressDisplay with an explicit writer
func NewProgressDisplayTo(operation string, out io.Writer) *ProgressDisplay {
	return &ProgressDisplay{
		operation: operation,
		out:       out,
		files:     make(map[string]*fileProgress),
	}
}

// Add registers a file and grows the bar by its size
func (p *ProgressDisplay) Add(name string, total uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.files[name] = &fileProgress{total: total}
	p.total += total

	if p.bar == nil {
		p.initBar()
		return
	}
	p.bar.ChangeMax64(int64(p.total))
	p.describe()
}

// Increment advances the bar by n bytes of file name
func (p *ProgressDisplay) Increment(name string, n uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.files[name]
	if !ok || p.bar == nil {
		return
	}
	if p.start.IsZero() {
		p.start = time.Now()
	}

	f.done += n
	_ = p.bar.Add64(int64(n))
}

// Finish marks a file as completed
func (p *ProgressDisplay) Finish(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.files[name]
	if !ok {
		return
	}
	p.finished++
	p.describe()
	p.printLine(fmt.Sprintf("+ %s (%s)", name, humanize.IBytes(f.done)))
}

// Abandon marks a file as failed
func (p *ProgressDisplay) Abandon(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.files[name]
	if !ok {
		return
	}
	p.failed++
	p.describe()
	p.printLine(fmt.Sprintf("- %s (%s of %s)", name, humanize.IBytes(f.done), humanize.IBytes(f.total)))
}

// Wait completes the bar and prints the batch summary
func (p *ProgressDisplay) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()

	var done uint64
	for _, f := range p.files {
		done += f.done
	}

	elapsed := time.Duration(0)
	if !p.start.IsZero() {
		elapsed = time.Since(p.start)
	}

	fmt.Fprintf(p.out, "\n=============================================\n")
	fmt.Fprintf(p.out, "+ Files: %d completed, %d failed\n", p.finished, p.failed)
	fmt.Fprintf(p.out, "+ Total bytes: %s\n", humanize.IBytes(done))
	fmt.Fprintf(p.out, "+ Transfer time: %s\n", elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		fmt.Fprintf(p.out, "+ Average throughput: %s/s\n", humanize.IBytes(uint64(float64(done)/elapsed.Seconds())))
	}
	fmt.Fprintf(p.out, "=============================================\n")
}

func (p *ProgressDisplay) initBar() {
	p.bar = progressbar.NewOptions64(int64(p.total),
		progressbar.OptionSetDescription(p.operation),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
	p.describe()
}

func (p *ProgressDisplay) describe() {
	if p.bar == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("%s %d/%d files", p.operation, p.finished+p.failed, len(p.files)))
}

// printLine writes above the bar without leaving it half drawn
func (p *ProgressDisplay) printLine(line string) {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
	fmt.Fprintln(p.out, line)
	if p.bar != nil {
		_ = p.bar.RenderBlank()
	}
}
