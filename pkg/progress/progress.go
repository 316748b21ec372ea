// Package progress draws scan progress on stderr.
package progress

import (
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for a known file count, or a spinner when
// the count grows as work proceeds.
type Tracker struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	label string
	done  int
}

// Options tune where and whether a Tracker draws.
type Options struct {
	Writer io.Writer
	// Quiet makes every method a no-op.
	Quiet bool
}

func (o Options) writer() io.Writer {
	if o.Writer == nil {
		return os.Stderr
	}
	return o.Writer
}

// NewTracker creates a bar for total files.
func NewTracker(label string, total int, opts Options) *Tracker {
	if opts.Quiet {
		return &Tracker{label: label}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(opts.writer()),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label}
}

// NewSpinner creates a spinner for an unknown or growing total.
func NewSpinner(label string, opts Options) *Tracker {
	if opts.Quiet {
		return &Tracker{label: label}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(opts.writer()),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
	)
	return &Tracker{bar: bar, label: label}
}

// Update moves the tracker forward to processed files and never back. It
// matches crawler.ProgressFunc and is safe for concurrent use; total only
// raises the bar's max.
func (t *Tracker) Update(processed, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bar != nil && total > t.bar.GetMax() && t.bar.GetMax() >= 0 {
		t.bar.ChangeMax(total)
	}
	if delta := processed - t.done; delta > 0 {
		t.add(delta)
	}
}

func (t *Tracker) add(n int) {
	t.done += n
	if t.bar != nil {
		t.bar.Add(n)
	}
}

// Done returns the highest processed count seen so far.
func (t *Tracker) Done() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Finish completes and clears the bar.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bar == nil {
		return
	}
	t.bar.Finish()
	t.bar.Clear()
}
