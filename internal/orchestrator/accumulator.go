package orchestrator

import "github.com/wharflab/tscheck/internal/diagnostic"

// Cycle is what one check cycle produced.
type Cycle struct {
	Errors   []diagnostic.FormattedError
	Warnings []diagnostic.FormattedError
	// Fatal holds transport failures. When set, Errors and Warnings are not
	// reported.
	Fatal []error
}

// Empty reports whether the cycle carries nothing at all.
func (c Cycle) Empty() bool {
	return len(c.Errors) == 0 && len(c.Warnings) == 0 && len(c.Fatal) == 0
}

// Accumulator collects the in-flight cycle. It is owned by a single worker's
// event loop and swapped out whole at cycle boundaries.
type Accumulator struct {
	cur Cycle
}

// Add sorts a diagnostic into its bucket by category. Only errors go to the
// error bucket; warnings, suggestions and messages are all warnings to the
// build.
func (a *Accumulator) Add(d diagnostic.FormattedError) {
	if d.Category == diagnostic.CategoryError {
		a.cur.Errors = append(a.cur.Errors, d)
		return
	}
	a.cur.Warnings = append(a.cur.Warnings, d)
}

// AddFatal records a transport failure.
func (a *Accumulator) AddFatal(err error) {
	a.cur.Fatal = append(a.cur.Fatal, err)
}

// HasFatal reports whether a transport failure was recorded.
func (a *Accumulator) HasFatal() bool { return len(a.cur.Fatal) > 0 }

// Reset empties the accumulator.
func (a *Accumulator) Reset() { a.cur = Cycle{} }

// Drain returns the collected cycle and leaves the accumulator empty.
func (a *Accumulator) Drain() Cycle {
	c := a.cur
	a.cur = Cycle{}
	return c
}
