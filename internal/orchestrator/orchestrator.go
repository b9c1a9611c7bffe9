// Package orchestrator runs type checks in a background worker on behalf of a
// build pipeline. It owns the worker's lifecycle, sorts what the worker
// reports into errors and warnings, and makes the pipeline's done hook wait
// until the current cycle has fully reported.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/engine"
	"github.com/wharflab/tscheck/internal/host"
	"github.com/wharflab/tscheck/internal/pipeline"
	"github.com/wharflab/tscheck/internal/tsconfig"
	"github.com/wharflab/tscheck/internal/waiter"
	"github.com/wharflab/tscheck/internal/watchstatus"
	"github.com/wharflab/tscheck/internal/worker"
)

// Processor rewrites a finished cycle's diagnostics before they are reported.
// It must not reorder them.
type Processor interface {
	Process(diags []diagnostic.FormattedError) []diagnostic.FormattedError
}

// Options configures an Orchestrator.
type Options struct {
	// ConfigPath is the explicit tsconfig path or directory. When empty the
	// pipeline's context directory, then the working directory, are tried.
	ConfigPath      string
	CompilerOptions engine.CompilerOptions
	// EmitError fails a cycle that reported any error.
	EmitError bool
	Engine    engine.Spec
	// CycleTimeout bounds how long BuildFinished waits. Zero waits forever.
	CycleTimeout time.Duration
	Snippets     diagnostic.SourceOptions
	NoSnippets   bool
	Processor    Processor
}

// Orchestrator coordinates one background worker at a time.
type Orchestrator struct {
	opts    Options
	spawner host.Spawner
	logger  *slog.Logger
	done    *waiter.Waiter[Cycle]

	mu         sync.Mutex
	state      State
	mode       worker.Mode
	worker     host.Worker
	configPath string
}

// New creates an orchestrator starting workers with spawner.
func New(opts Options, spawner host.Spawner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		opts:    opts,
		spawner: spawner,
		logger:  logger,
		done:    waiter.New[Cycle](),
	}
}

// Apply attaches the orchestrator to a pipeline's hooks.
func (o *Orchestrator) Apply(h *pipeline.Hooks) {
	h.OnBuildStart(func(ctx context.Context, c *pipeline.Compiler) error {
		return o.BeginBuild(ctx, c.Context)
	})
	h.OnWatchStart(func(ctx context.Context, c *pipeline.Compiler) error {
		return o.BeginWatch(ctx, c.Context)
	})
	h.OnBuildFinished(o.BuildFinished)
	h.OnWatchTeardown(o.Teardown)
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ConfigPath returns the tsconfig the current worker was started with.
func (o *Orchestrator) ConfigPath() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.configPath
}

// BeginBuild starts a one-shot check in a fresh worker. contextDir is the
// pipeline's root directory.
func (o *Orchestrator) BeginBuild(ctx context.Context, contextDir string) error {
	return o.begin(ctx, contextDir, worker.ModeOnce)
}

// BeginWatch starts a watch worker, or does nothing when one is already
// running.
func (o *Orchestrator) BeginWatch(ctx context.Context, contextDir string) error {
	return o.begin(ctx, contextDir, worker.ModeWatch)
}

func (o *Orchestrator) begin(ctx context.Context, contextDir string, mode worker.Mode) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateTerminated {
		return ErrTerminated
	}
	if o.worker != nil && mode == worker.ModeWatch && o.mode == worker.ModeWatch {
		o.logger.Debug("reusing watch worker", slog.Int("worker", o.worker.ID()))
		return nil
	}
	if o.worker != nil {
		o.discardLocked()
	}

	configPath, err := tsconfig.Find(tsconfig.Candidates(o.opts.ConfigPath, contextDir)...)
	if err != nil {
		return err
	}

	data := worker.Data{
		ConfigPath:      configPath,
		CompilerOptions: o.opts.CompilerOptions,
		Mode:            mode,
		Engine:          o.opts.Engine,
		Snippets:        o.opts.Snippets,
		NoSnippets:      o.opts.NoSnippets,
	}
	started := time.Now()
	w, err := o.spawner.Spawn(ctx, data)
	if err != nil {
		return fmt.Errorf("start %s worker: %w", mode, err)
	}

	o.done.Clear()
	o.worker = w
	o.mode = mode
	o.configPath = configPath
	o.transitionLocked(SignalBegin)
	o.logger.Debug("worker new",
		slog.Int("worker", w.ID()),
		slog.String("mode", string(mode)),
		slog.String("tsconfig", configPath))

	go o.pump(w, mode, started)
	return nil
}

// BuildFinished blocks until the current cycle has reported, then appends
// its errors and warnings to stats. A worker failure is returned as a
// *FatalError without touching stats. With EmitError, a cycle with errors
// returns a *FailedError.
func (o *Orchestrator) BuildFinished(ctx context.Context, stats *pipeline.Stats) error {
	if o.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, o.opts.CycleTimeout, ErrCycleTimeout)
		defer cancel()
	}

	cycle, err := o.done.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return err
	}

	o.mu.Lock()
	var workerID int
	if o.worker != nil {
		workerID = o.worker.ID()
	}
	if len(cycle.Fatal) > 0 || o.mode == worker.ModeOnce {
		o.discardLocked()
	}
	o.transitionLocked(SignalReported)
	o.mu.Unlock()

	if len(cycle.Fatal) > 0 {
		return &FatalError{WorkerID: workerID, Err: errors.Join(cycle.Fatal...)}
	}

	errs, warns := o.process(cycle)
	for i := range errs {
		stats.Errors = append(stats.Errors, &errs[i])
	}
	for i := range warns {
		stats.Warnings = append(stats.Warnings, &warns[i])
	}
	o.logger.Debug("cycle reported",
		slog.Int("errors", len(errs)),
		slog.Int("warnings", len(warns)))

	if o.opts.EmitError && len(errs) > 0 {
		return &FailedError{First: errs[0], Count: len(errs)}
	}
	return nil
}

// Teardown stops the worker and fails any pending or future BuildFinished
// with ErrTerminated. The orchestrator cannot be used afterwards.
func (o *Orchestrator) Teardown() {
	o.mu.Lock()
	if o.state == StateTerminated {
		o.mu.Unlock()
		return
	}
	w := o.worker
	o.worker = nil
	o.transitionLocked(SignalTeardown)
	o.mu.Unlock()

	o.done.Close(ErrTerminated)
	if w != nil {
		o.terminate(w)
	}
}

// discardLocked drops the current worker. A worker that already exited is
// only released.
func (o *Orchestrator) discardLocked() {
	w := o.worker
	o.worker = nil
	if w != nil {
		go o.terminate(w)
	}
}

func (o *Orchestrator) terminate(w host.Worker) {
	started := time.Now()
	if err := w.Terminate(); err != nil {
		o.logger.Warn("worker terminate failed",
			slog.Int("worker", w.ID()),
			slog.Any("error", err))
		return
	}
	o.logger.Debug("worker terminate",
		slog.Int("worker", w.ID()),
		slog.Duration("duration", time.Since(started)))
}

func (o *Orchestrator) transitionLocked(sig Signal) {
	to, ok := next(o.state, sig, o.mode == worker.ModeWatch)
	if !ok {
		o.logger.Debug("ignored signal",
			slog.String("state", o.state.String()),
			slog.String("signal", sig.String()))
		return
	}
	if to != o.state {
		o.logger.Debug("state",
			slog.String("from", o.state.String()),
			slog.String("to", to.String()),
			slog.String("signal", sig.String()))
	}
	o.state = to
}

// signal applies sig on behalf of w. It reports false when w is no longer
// the current worker and its events must be ignored.
func (o *Orchestrator) signal(w host.Worker, sig Signal) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.worker != w {
		return false
	}
	o.transitionLocked(sig)
	return true
}

// publish applies sig and hands c to BuildFinished, both on behalf of w and
// under one lock, so a begin that replaces w cannot see c land after its
// Clear. It reports false when w is stale and c was dropped.
func (o *Orchestrator) publish(w host.Worker, sig Signal, c Cycle) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.worker != w {
		return false
	}
	o.transitionLocked(sig)
	o.done.Notify(c)
	return true
}

// pump is the event loop of one worker. It owns that worker's accumulator.
func (o *Orchestrator) pump(w host.Worker, mode worker.Mode, started time.Time) {
	logger := o.logger.With(slog.Int("worker", w.ID()))
	acc := &Accumulator{}
	cycleStart := started

	finish := func(sig Signal) {
		c := acc.Drain()
		if !o.publish(w, sig, c) {
			return
		}
		logger.Debug("cycle finish",
			slog.Int("errors", len(c.Errors)),
			slog.Int("warnings", len(c.Warnings)),
			slog.Int("fatal", len(c.Fatal)),
			slog.Duration("duration", time.Since(cycleStart)))
	}

	for ev := range w.Events() {
		switch ev.Kind {
		case host.EventOnline:
			if !o.signal(w, SignalOnline) {
				return
			}
			acc.Reset()
			cycleStart = time.Now()
			logger.Debug("worker online", slog.Duration("startup", time.Since(started)))

		case host.EventMessage:
			if !o.handle(w, mode, acc, ev.Message, logger, &cycleStart, finish) {
				return
			}

		case host.EventError:
			if !o.signal(w, SignalWorkerError) {
				return
			}
			logger.Debug("worker error", slog.Any("error", ev.Err))
			acc.AddFatal(ev.Err)

		case host.EventExit:
			logger.Debug("worker exit", slog.Int("code", ev.ExitCode))
			switch {
			case acc.HasFatal():
				finish(SignalExit)
			case mode == worker.ModeOnce:
				finish(SignalExit)
			default:
				if o.signal(w, SignalWorkerError) {
					acc.AddFatal(ErrWorkerExited)
					finish(SignalExit)
				}
			}
			return
		}
	}
}

// handle dispatches one channel message. It reports false once w is stale.
func (o *Orchestrator) handle(
	w host.Worker,
	mode worker.Mode,
	acc *Accumulator,
	m worker.Message,
	logger *slog.Logger,
	cycleStart *time.Time,
	finish func(Signal),
) bool {
	switch m.Kind {
	case worker.KindLog:
		logger.Debug("worker log", slog.Any("args", m.Log))

	case worker.KindDiagnostic, worker.KindDiagnostics:
		for _, d := range m.Diagnostics {
			acc.Add(d)
		}

	case worker.KindReport:
		status, ok := m.Report()
		if !ok {
			return true
		}
		tr := watchstatus.None
		if mode == worker.ModeWatch {
			tr = watchstatus.Classify(status.Code)
		}
		switch tr {
		case watchstatus.CycleStart:
			if !o.signal(w, SignalCycleStart) {
				return false
			}
			acc.Reset()
			*cycleStart = time.Now()
			logger.Debug("cycle start", slog.String("status", status.Text))
		case watchstatus.CycleFinish:
			finish(SignalCycleFinish)
		default:
			logger.Debug("worker status",
				slog.String("code", diagnostic.CodeString(status.Code)),
				slog.String("status", status.Text))
		}

	default:
		logger.Debug("unknown worker message", slog.String("type", string(m.Kind)))
	}
	return true
}

func (o *Orchestrator) process(c Cycle) (errs, warns []diagnostic.FormattedError) {
	if o.opts.Processor == nil {
		return c.Errors, c.Warnings
	}
	all := make([]diagnostic.FormattedError, 0, len(c.Errors)+len(c.Warnings))
	all = append(all, c.Errors...)
	all = append(all, c.Warnings...)
	for _, d := range o.opts.Processor.Process(all) {
		if d.Category == diagnostic.CategoryError {
			errs = append(errs, d)
		} else {
			warns = append(warns, d)
		}
	}
	return errs, warns
}
