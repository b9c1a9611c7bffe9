// Package pipeline is the build pipeline a background checker attaches to:
// a set of lifecycle hooks plus a compiler that fires them for a single run
// or for a watch loop.
package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Stats collects the outcome of one build cycle. Done hooks append to it.
type Stats struct {
	Cycle     int
	Errors    []error
	Warnings  []error
	StartTime time.Time
	EndTime   time.Time
}

// HasErrors reports whether the cycle recorded any error.
func (s *Stats) HasErrors() bool { return len(s.Errors) > 0 }

// Duration is the wall time of the cycle.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// StartFunc runs when a build or watch cycle begins. It returns once the
// hook is ready, not when its work is done.
type StartFunc func(ctx context.Context, c *Compiler) error

// DoneFunc runs when a cycle's build output is complete. It may block until
// its own results for the cycle are available.
type DoneFunc func(ctx context.Context, stats *Stats) error

// TeardownFunc runs once when watching stops.
type TeardownFunc func()

// Hooks holds the lifecycle callbacks. Hooks of one kind run in registration
// order, and the first error stops the rest.
type Hooks struct {
	buildStart []StartFunc
	watchStart []StartFunc
	done       []DoneFunc
	teardown   []TeardownFunc
}

// OnBuildStart registers fn for the start of a single run.
func (h *Hooks) OnBuildStart(fn StartFunc) { h.buildStart = append(h.buildStart, fn) }

// OnWatchStart registers fn for the start of every watch cycle.
func (h *Hooks) OnWatchStart(fn StartFunc) { h.watchStart = append(h.watchStart, fn) }

// OnBuildFinished registers fn for the end of every cycle.
func (h *Hooks) OnBuildFinished(fn DoneFunc) { h.done = append(h.done, fn) }

// OnWatchTeardown registers fn for the end of watching.
func (h *Hooks) OnWatchTeardown(fn TeardownFunc) { h.teardown = append(h.teardown, fn) }

// Plugin attaches itself to a compiler's hooks.
type Plugin interface {
	Apply(h *Hooks)
}

// Compiler drives the hooks.
type Compiler struct {
	// Context is the pipeline's root directory.
	Context string
	Hooks   Hooks
	Logger  *slog.Logger
}

// NewCompiler creates a compiler rooted at contextDir with plugins applied.
func NewCompiler(contextDir string, logger *slog.Logger, plugins ...Plugin) *Compiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Compiler{Context: contextDir, Logger: logger}
	for _, p := range plugins {
		p.Apply(&c.Hooks)
	}
	return c
}

// Run performs a single build cycle. The returned stats are valid even when
// err is set.
func (c *Compiler) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{Cycle: 1, StartTime: time.Now()}
	err := c.cycle(ctx, c.Hooks.buildStart, stats)
	stats.EndTime = time.Now()
	return stats, err
}

// ReportFunc receives each finished watch cycle. Returning an error stops
// watching with that error.
type ReportFunc func(stats *Stats, err error) error

// Watch runs cycles until ctx ends or report returns an error, then fires
// the teardown hooks. Cancellation is a normal stop and returns nil.
func (c *Compiler) Watch(ctx context.Context, report ReportFunc) error {
	defer func() {
		for _, fn := range c.Hooks.teardown {
			fn()
		}
	}()

	for n := 1; ; n++ {
		if ctx.Err() != nil {
			return nil
		}
		stats := &Stats{Cycle: n, StartTime: time.Now()}
		err := c.cycle(ctx, c.Hooks.watchStart, stats)
		if ctx.Err() != nil {
			return nil
		}
		stats.EndTime = time.Now()
		c.Logger.Debug("watch cycle finished",
			slog.Int("cycle", n),
			slog.Int("errors", len(stats.Errors)),
			slog.Int("warnings", len(stats.Warnings)),
			slog.Duration("duration", stats.Duration()))
		if rerr := report(stats, err); rerr != nil {
			return rerr
		}
	}
}

func (c *Compiler) cycle(ctx context.Context, start []StartFunc, stats *Stats) error {
	for _, fn := range start {
		if err := fn(ctx, c); err != nil {
			return err
		}
	}
	for _, fn := range c.Hooks.done {
		if err := fn(ctx, stats); err != nil {
			return err
		}
	}
	return nil
}
