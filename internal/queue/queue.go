// Package queue runs asynchronous tasks strictly one after another, in the
// order they were added.
package queue

import (
	"context"
	"sync"
)

// Task is a unit of work. The context is cancelled when the queue is closed.
type Task func(ctx context.Context) error

// Queue is an ordered FIFO of tasks served by a single goroutine. Task N+1
// starts only after task N returned. A failing task is reported to the error
// hook and does not stop the tasks behind it.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []Task
	closed bool
	// inflight counts queued plus running tasks; idle is closed whenever it
	// drops to zero.
	inflight int
	idle     chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	onError func(error)
	done    chan struct{}
}

// Option configures a Queue.
type Option func(*Queue)

// WithErrorHook sets the function called with every task error. By default
// errors are dropped.
func WithErrorHook(fn func(error)) Option {
	return func(q *Queue) { q.onError = fn }
}

// New starts a queue.
func New(opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		ctx:     ctx,
		cancel:  cancel,
		onError: func(error) {},
		done:    make(chan struct{}),
		idle:    make(chan struct{}),
	}
	close(q.idle)
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	go q.run()
	return q
}

// Add appends a task and returns immediately. Tasks added after Close are
// dropped and Add reports false.
func (q *Queue) Add(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if q.inflight == 0 {
		q.idle = make(chan struct{})
	}
	q.inflight++
	q.tasks = append(q.tasks, task)
	q.cond.Signal()
	return true
}

// Len returns the number of tasks not yet started.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drain blocks until every task added so far has settled, or ctx ends.
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close abandons tasks that have not started and cancels the running one's
// context. It waits for the running task to return.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	for range q.tasks {
		q.settleLocked()
	}
	q.tasks = nil
	q.cancel()
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.exec(task)
	}
}

func (q *Queue) exec(task Task) {
	if err := q.safeCall(task); err != nil {
		q.onError(err)
	}
	q.mu.Lock()
	q.settleLocked()
	q.mu.Unlock()
}

func (q *Queue) settleLocked() {
	q.inflight--
	if q.inflight == 0 {
		close(q.idle)
	}
}

func (q *Queue) safeCall(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return task(q.ctx)
}
