package queue

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PreservesOrderUnderRandomLatency(t *testing.T) {
	t.Parallel()

	q := New()
	defer q.Close()

	var (
		mu    sync.Mutex
		order []int
	)
	const n = 50
	for i := range n {
		delay := time.Duration(rand.IntN(3000)) * time.Microsecond
		q.Add(func(context.Context) error {
			time.Sleep(delay)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	require.NoError(t, q.Drain(context.Background()))
	require.Len(t, order, n)
	for i, got := range order {
		assert.Equal(t, i, got)
	}
}

func TestQueue_TasksNeverOverlap(t *testing.T) {
	t.Parallel()

	q := New()
	defer q.Close()

	var running, maxRunning atomic.Int32
	for range 20 {
		q.Add(func(context.Context) error {
			cur := running.Add(1)
			for {
				prev := maxRunning.Load()
				if cur <= prev || maxRunning.CompareAndSwap(prev, cur) {
					break
				}
			}
			time.Sleep(200 * time.Microsecond)
			running.Add(-1)
			return nil
		})
	}
	require.NoError(t, q.Drain(context.Background()))
	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestQueue_FailureDoesNotAbortChain(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		errs   []error
		ran    []string
		failed = errors.New("publish failed")
	)
	q := New(WithErrorHook(func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}))
	defer q.Close()

	record := func(name string, err error) Task {
		return func(context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return err
		}
	}
	q.Add(record("a", nil))
	q.Add(record("b", failed))
	q.Add(func(context.Context) error { panic("boom") })
	q.Add(record("c", nil))

	require.NoError(t, q.Drain(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, ran)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], failed)
	var pe *PanicError
	require.ErrorAs(t, errs[1], &pe)
	assert.Equal(t, "boom", pe.Value)
}

func TestQueue_CloseAbandonsPending(t *testing.T) {
	t.Parallel()

	q := New()
	started := make(chan struct{})
	var after atomic.Bool

	q.Add(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	q.Add(func(context.Context) error {
		after.Store(true)
		return nil
	})

	<-started
	q.Close()

	assert.False(t, after.Load())
	assert.False(t, q.Add(func(context.Context) error { return nil }))
	assert.Equal(t, 0, q.Len())
	require.NoError(t, q.Drain(context.Background()))

	// Closing twice is harmless.
	q.Close()
}

func TestQueue_DrainHonoursContext(t *testing.T) {
	t.Parallel()

	q := New()
	defer q.Close()

	release := make(chan struct{})
	q.Add(func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Drain(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, q.Drain(context.Background()))
}

func TestQueue_ReusableAfterIdle(t *testing.T) {
	t.Parallel()

	q := New()
	defer q.Close()

	var count atomic.Int32
	inc := func(context.Context) error {
		count.Add(1)
		return nil
	}

	q.Add(inc)
	require.NoError(t, q.Drain(context.Background()))
	q.Add(inc)
	q.Add(inc)
	require.NoError(t, q.Drain(context.Background()))
	assert.Equal(t, int32(3), count.Load())
}
