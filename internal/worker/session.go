package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/engine"
	"github.com/wharflab/tscheck/internal/queue"
)

// Session is one worker's check session. Formatting may read files, so each
// diagnostic is formatted and published by a task on an ordered queue; the
// orchestrator therefore sees diagnostics in exactly the order the engine
// produced them.
type Session struct {
	channel   Channel
	formatter *diagnostic.Formatter
	queue     *queue.Queue
	logger    *slog.Logger
}

// NewSession creates a session publishing to ch.
func NewSession(ch Channel, f *diagnostic.Formatter, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		channel:   ch,
		formatter: f,
		logger:    logger,
	}
	s.queue = queue.New(queue.WithErrorHook(func(err error) {
		s.logger.Warn("publish failed", slog.Any("error", err))
	}))
	return s
}

// Log publishes a log message behind everything queued so far.
func (s *Session) Log(args ...any) {
	msg := LogMessage(args...)
	s.queue.Add(func(context.Context) error {
		return s.channel.Post(msg)
	})
}

// OnDiagnostic queues publication of a watch-mode diagnostic.
func (s *Session) OnDiagnostic(raw diagnostic.Raw) {
	s.queue.Add(func(ctx context.Context) error {
		return s.channel.Post(DiagnosticMessage(s.formatter.Format(ctx, raw)))
	})
}

// OnStatus queues publication of a watch status report.
func (s *Session) OnStatus(raw diagnostic.Raw) {
	s.queue.Add(func(ctx context.Context) error {
		return s.channel.Post(ReportMessage(s.formatter.Format(ctx, raw)))
	})
}

// RunOnce checks the project once. Every diagnostic is published as its own
// one-element batch, in engine order; a clean project publishes nothing. If
// the engine fails, nothing is published and the failure is returned.
func (s *Session) RunOnce(ctx context.Context, eng engine.Engine, data Data) error {
	s.Log("checking", data.ConfigPath)
	diags, err := eng.CheckOnce(ctx, data.ConfigPath, data.EngineOptions())
	if err != nil {
		return err
	}
	for _, raw := range diags {
		s.queue.Add(func(ctx context.Context) error {
			formatted := s.formatter.Format(ctx, raw)
			return s.channel.Post(DiagnosticsMessage([]diagnostic.FormattedError{formatted}))
		})
	}
	return s.queue.Drain(ctx)
}

// RunWatch watches the project until ctx ends. It never returns on its own
// unless the engine fails; that failure is returned after everything already
// queued has been published.
func (s *Session) RunWatch(ctx context.Context, eng engine.Engine, data Data) error {
	s.Log("watching", data.ConfigPath)
	err := eng.Watch(ctx, data.ConfigPath, data.EngineOptions(), s.OnDiagnostic, s.OnStatus)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("watch ended without error")
	}
	if drainErr := s.queue.Drain(context.Background()); drainErr != nil {
		return errors.Join(err, drainErr)
	}
	return err
}

// Close abandons queued work. Call it once the session is over.
func (s *Session) Close() {
	s.queue.Close()
}

// Run executes a complete session for data on eng, publishing to ch.
func Run(ctx context.Context, eng engine.Engine, data Data, ch Channel, logger *slog.Logger) error {
	s := NewSession(ch, data.Formatter(diagnostic.WithLogger(logger)), logger)
	defer s.Close()

	switch data.Mode {
	case ModeOnce:
		return s.RunOnce(ctx, eng, data)
	case ModeWatch:
		return s.RunWatch(ctx, eng, data)
	default:
		return fmt.Errorf("unknown worker mode %q", data.Mode)
	}
}
