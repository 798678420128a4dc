// Package progress reports long-running collaborator work (option research,
// knowledge indexing) to the operator's terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives progress for one unit of work at a time.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// New returns a line reporter when running in CI and a progress bar
// otherwise. Output goes to w (stderr when nil).
func New(w io.Writer, description string) Reporter {
	if w == nil {
		w = os.Stderr
	}
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &LineReporter{w: w, description: description}
	}
	return &BarReporter{w: w, description: description}
}

// BarReporter draws a progress bar. Updates may come from several goroutines.
type BarReporter struct {
	w           io.Writer
	description string

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func (r *BarReporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription(r.description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *BarReporter) Update(current int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		r.bar.Describe(fmt.Sprintf("%s: %s", r.description, message))
		_ = r.bar.Set(current)
	}
}

func (r *BarReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

// LineReporter prints one line per update, for logs that cannot redraw.
type LineReporter struct {
	w           io.Writer
	description string

	mu    sync.Mutex
	total int
}

func (r *LineReporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
	fmt.Fprintf(r.w, "%s: %d steps\n", r.description, total)
}

func (r *LineReporter) Update(current int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "[%d/%d] %s\n", current, r.total, message)
}

func (r *LineReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s: done\n", r.description)
}
