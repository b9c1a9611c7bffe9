// Package waiter provides a single-slot rendezvous between a producer that
// finishes units of work and a consumer that wants the next finished one.
package waiter

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Wait after Close when no cause was given.
	ErrClosed = errors.New("waiter closed")
	// ErrWaitPending is returned when Wait is called while another Wait is
	// still outstanding.
	ErrWaitPending = errors.New("waiter: a wait is already pending")
)

// Waiter hands values from Notify to Wait. A value notified before anyone
// waits is kept until the next Wait; a newer Notify replaces it. Each value is
// delivered at most once, and the Waiter re-arms after every delivery.
type Waiter[T any] struct {
	mu      sync.Mutex
	slot    chan T
	waiting bool
	closed  chan struct{}
	cause   error
}

// New creates an empty Waiter.
func New[T any]() *Waiter[T] {
	return &Waiter[T]{
		slot:   make(chan T, 1),
		closed: make(chan struct{}),
	}
}

// Notify stores v for the current or next Wait, replacing any value nobody
// has collected yet. Notify after Close is ignored.
func (w *Waiter[T]) Notify(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed() {
		return
	}
	select {
	case <-w.slot:
	default:
	}
	w.slot <- v
}

// Wait blocks until a value is notified, ctx ends or the Waiter is closed.
// Only one Wait may be outstanding at a time.
func (w *Waiter[T]) Wait(ctx context.Context) (T, error) {
	var zero T

	w.mu.Lock()
	if w.isClosed() {
		w.mu.Unlock()
		return zero, w.cause
	}
	if w.waiting {
		w.mu.Unlock()
		return zero, ErrWaitPending
	}
	w.waiting = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.waiting = false
		w.mu.Unlock()
	}()

	select {
	case v := <-w.slot:
		return v, nil
	case <-w.closed:
		return zero, w.cause
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Pending reports whether a notified value is waiting to be collected.
func (w *Waiter[T]) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.slot) > 0
}

// Clear drops a value nobody has collected yet.
func (w *Waiter[T]) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.slot:
	default:
	}
}

// Close fails the outstanding and all future waits with cause (ErrClosed when
// nil) and drops any uncollected value. Only the first Close has an effect.
func (w *Waiter[T]) Close(cause error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed() {
		return
	}
	if cause == nil {
		cause = ErrClosed
	}
	w.cause = cause
	select {
	case <-w.slot:
	default:
	}
	close(w.closed)
}

func (w *Waiter[T]) isClosed() bool {
	select {
	case <-w.closed:
		return true
	default:
		return false
	}
}
