package orchestrator

import (
	"errors"
	"fmt"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

var (
	// ErrTerminated is returned once the orchestrator has been torn down,
	// including by a wait that was pending at the time.
	ErrTerminated = errors.New("orchestrator terminated")
	// ErrCycleTimeout is returned when a cycle does not finish within the
	// configured cycle timeout.
	ErrCycleTimeout = errors.New("check cycle timed out")
	// ErrWorkerExited is recorded when a watch worker stops on its own.
	ErrWorkerExited = errors.New("watch worker exited unexpectedly")
)

// FatalError is a transport failure: the worker crashed or failed before it
// could report a cycle. It is never mixed with type errors.
type FatalError struct {
	WorkerID int
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("worker %d failed: %v", e.WorkerID, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// FailedError fails a cycle that reported type errors when emit-error is set.
type FailedError struct {
	First diagnostic.FormattedError
	Count int
}

func (e *FailedError) Error() string {
	if e.Count == 1 {
		return fmt.Sprintf("type check failed: %s", e.First.Text)
	}
	return fmt.Sprintf("type check failed with %d errors, first: %s", e.Count, e.First.Text)
}

func (e *FailedError) Unwrap() error { return &e.First }
