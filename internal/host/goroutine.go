package host

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wharflab/tscheck/internal/engine"
	"github.com/wharflab/tscheck/internal/worker"
)

// GoroutineSpawner runs each session in a goroutine of this process.
type GoroutineSpawner struct {
	// NewEngine builds the engine for a session; engine.New when nil.
	NewEngine engine.Factory
	Logger    *slog.Logger
}

// Spawn implements Spawner.
func (s *GoroutineSpawner) Spawn(_ context.Context, data worker.Data) (Worker, error) {
	newEngine := s.NewEngine
	if newEngine == nil {
		newEngine = engine.New
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	w := &goroutineWorker{
		id:   newID(),
		box:  newMailbox(),
		done: make(chan struct{}),
	}
	logger = logger.With(slog.Int("worker", w.id))

	// The session outlives the spawning call; only Terminate stops it.
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	go w.run(ctx, newEngine, data, logger)
	return w, nil
}

type goroutineWorker struct {
	id     int
	box    *mailbox
	cancel context.CancelFunc
	done   chan struct{}

	termOnce sync.Once
}

func (w *goroutineWorker) ID() int { return w.id }

func (w *goroutineWorker) Events() <-chan Event { return w.box.ch }

func (w *goroutineWorker) Terminate() error {
	w.termOnce.Do(func() {
		close(w.box.shut)
		w.cancel()
	})
	<-w.done
	return nil
}

func (w *goroutineWorker) run(ctx context.Context, newEngine engine.Factory, data worker.Data, logger *slog.Logger) {
	defer close(w.done)
	defer close(w.box.ch)
	defer w.cancel()

	eng, err := newEngine(data.Engine, logger)
	if err != nil {
		w.box.send(Event{Kind: EventError, Err: err})
		w.box.send(Event{Kind: EventExit, ExitCode: 1})
		return
	}

	w.box.send(Event{Kind: EventOnline})
	ch := worker.ChannelFunc(func(m worker.Message) error {
		if !w.box.send(Event{Kind: EventMessage, Message: m}) {
			return context.Canceled
		}
		return nil
	})

	if err := runSession(ctx, eng, data, ch, logger); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.box.send(Event{Kind: EventError, Err: err})
		w.box.send(Event{Kind: EventExit, ExitCode: 1})
		return
	}
	w.box.send(Event{Kind: EventExit, ExitCode: 0})
}

// runSession runs a session and turns a panic into an error, the way an
// uncaught exception ends a worker with an error event.
func runSession(ctx context.Context, eng engine.Engine, data worker.Data, ch worker.Channel, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return worker.Run(ctx, eng, data, ch, logger)
}
