package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/wharflab/tscheck/internal/process"
	"github.com/wharflab/tscheck/internal/worker"
)

// WorkerCommand is the subcommand that turns the tscheck binary into a child
// worker.
const WorkerCommand = "worker"

// ProcessSpawner runs each session in a child process, isolating the
// orchestrator from crashes and runaway memory in the engine.
type ProcessSpawner struct {
	// Command is the child argv. Defaults to this executable with the
	// worker subcommand.
	Command        []string
	Dir            string
	Env            []string
	TerminateGrace time.Duration
	// Stderr receives the child's stderr (its logs) as well as the tail
	// kept for error reports.
	Stderr io.Writer
	Logger *slog.Logger
}

// Spawn implements Spawner.
func (s *ProcessSpawner) Spawn(_ context.Context, data worker.Data) (Worker, error) {
	argv := s.Command
	if len(argv) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		argv = []string{exe, WorkerCommand}
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p, err := process.Start(argv, process.Options{
		Dir:            s.Dir,
		Env:            s.Env,
		TerminateGrace: s.TerminateGrace,
		StderrTee:      s.Stderr,
	})
	if err != nil {
		return nil, err
	}

	w := &processWorker{
		id:   newID(),
		proc: p,
		box:  newMailbox(),
		done: make(chan struct{}),
	}
	w.logger = logger.With(slog.Int("worker", w.id), slog.Int("pid", p.Pid()))

	if err := newFrameWriter(p.Stdin()).write(frame{Kind: frameData, Data: &data}); err != nil {
		_, _ = p.Terminate()
		return nil, p.Wrap("send worker data", err, nil)
	}
	go w.pump()
	return w, nil
}

type processWorker struct {
	id     int
	proc   *process.Process
	box    *mailbox
	done   chan struct{}
	logger *slog.Logger

	termOnce sync.Once
	termErr  error
}

func (w *processWorker) ID() int { return w.id }

func (w *processWorker) Events() <-chan Event { return w.box.ch }

// Terminate closes the child's stdin and stops its process group.
func (w *processWorker) Terminate() error {
	w.termOnce.Do(func() {
		close(w.box.shut)
		_, w.termErr = w.proc.Terminate()
	})
	<-w.done
	return w.termErr
}

func (w *processWorker) pump() {
	defer close(w.done)
	defer close(w.box.ch)

	fr := newFrameReader(w.proc.Stdout())
	var remoteErr, readErr error
	for {
		f, err := fr.read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
		switch f.Kind {
		case frameOnline:
			w.box.send(Event{Kind: EventOnline})
		case frameMessage:
			if f.Message != nil {
				w.box.send(Event{Kind: EventMessage, Message: *f.Message})
			}
		case frameError:
			remoteErr = &RemoteError{Message: f.Error}
			w.box.send(Event{Kind: EventError, Err: remoteErr})
		default:
			w.logger.Warn("unexpected frame from worker", slog.Int("kind", int(f.Kind)))
		}
	}
	if readErr != nil {
		_, _ = w.proc.Terminate()
	}

	code, waitErr := w.proc.Wait()
	exit := -1
	if code != nil {
		exit = *code
	}
	if remoteErr == nil && (exit != 0 || readErr != nil) {
		cause := readErr
		if cause == nil {
			cause = waitErr
		}
		if cause == nil {
			cause = errors.New("worker exited abnormally")
		}
		w.box.send(Event{Kind: EventError, Err: w.proc.Wrap("worker", cause, code)})
	}
	w.box.send(Event{Kind: EventExit, ExitCode: exit})
}
