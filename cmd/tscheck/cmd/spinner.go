package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"charm.land/bubbles/v2/spinner"
	"github.com/mattn/go-isatty"
)

// progress draws a spinner on an interactive stderr while a check cycle is
// in flight. On other outputs it does nothing.
type progress struct {
	w       io.Writer
	msg     string
	enabled bool

	mu     sync.Mutex
	active bool
	done   chan struct{}
	once   sync.Once
}

func newProgress(f *os.File, msg string) *progress {
	return &progress{
		w:       f,
		msg:     msg,
		enabled: isatty.IsTerminal(f.Fd()),
		done:    make(chan struct{}),
	}
}

// Start shows the spinner.
func (p *progress) Start() {
	p.mu.Lock()
	p.active = true
	p.mu.Unlock()
}

// Stop hides the spinner and clears its line.
func (p *progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active && p.enabled {
		_, _ = fmt.Fprint(p.w, "\r\033[2K")
	}
	p.active = false
}

// Close ends Run.
func (p *progress) Close() {
	p.once.Do(func() { close(p.done) })
}

// Run draws frames until ctx ends or Close is called.
func (p *progress) Run(ctx context.Context) error {
	defer p.Stop()
	if !p.enabled {
		select {
		case <-ctx.Done():
		case <-p.done:
		}
		return nil
	}

	sp := spinner.Line
	frames := sp.Frames
	interval := sp.FPS
	if len(frames) == 0 {
		frames = []string{"-"}
	}
	if interval <= 0 {
		interval = 120 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.done:
			return nil
		case <-ticker.C:
			p.mu.Lock()
			if p.active {
				_, _ = fmt.Fprintf(p.w, "\r%s %s", frames[frame%len(frames)], p.msg)
				frame++
			}
			p.mu.Unlock()
		}
	}
}
