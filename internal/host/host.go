// Package host runs check sessions in background workers and reports their
// lifecycle to the orchestrator as an ordered stream of events.
package host

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/wharflab/tscheck/internal/worker"
)

// EventKind identifies a worker lifecycle event.
type EventKind int

const (
	// EventOnline is sent once the session is running.
	EventOnline EventKind = iota
	// EventMessage carries a message published by the session.
	EventMessage
	// EventError reports that the session failed.
	EventError
	// EventExit is always the last event. ExitCode 0 means success.
	EventExit
)

func (k EventKind) String() string {
	switch k {
	case EventOnline:
		return "online"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventExit:
		return "exit"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one worker lifecycle event.
type Event struct {
	Kind     EventKind
	Message  worker.Message
	Err      error
	ExitCode int
}

// Worker is a running session.
type Worker interface {
	// ID identifies the worker in logs.
	ID() int
	// Events delivers events in order. It is closed after EventExit, or
	// after Terminate.
	Events() <-chan Event
	// Terminate stops the session. No events are delivered afterwards.
	Terminate() error
}

// Spawner starts workers.
type Spawner interface {
	Spawn(ctx context.Context, data worker.Data) (Worker, error)
}

// Isolation selects a Spawner implementation.
type Isolation string

const (
	IsolationGoroutine Isolation = "goroutine"
	IsolationProcess   Isolation = "process"
)

// ParseIsolation validates an isolation name.
func ParseIsolation(s string) (Isolation, error) {
	switch Isolation(s) {
	case IsolationGoroutine, IsolationProcess:
		return Isolation(s), nil
	default:
		return "", fmt.Errorf("unknown worker isolation %q (want goroutine or process)", s)
	}
}

var nextID atomic.Int64

func newID() int {
	return int(nextID.Add(1))
}

// mailbox delivers events in order until it is shut. Sends never block the
// producer for longer than it takes the consumer to keep up, and stop
// entirely once shut.
type mailbox struct {
	ch   chan Event
	shut chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan Event, 64), shut: make(chan struct{})}
}

func (m *mailbox) send(ev Event) bool {
	select {
	case <-m.shut:
		return false
	default:
	}
	select {
	case m.ch <- ev:
		return true
	case <-m.shut:
		return false
	}
}
