// Package processor provides a composable diagnostic processing pipeline.
//
// Diagnostics flow through a sequence of processors, each transforming the
// slice (filtering or modifying). Processors never reorder: a cycle's
// diagnostics are reported in the order the engine produced them.
//
// Standard pipeline order:
//  1. PathNormalization - Paths relative to the project root, forward slashes
//  2. CodeFilter - Drop ignored codes and codes whose severity is "off"
//  3. SeverityOverride - Apply config severity overrides
//  4. PathExclusionFilter - Drop diagnostics in excluded files
//  5. Deduplication - Remove duplicate diagnostics
package processor

import (
	"github.com/wharflab/tscheck/internal/config"
	"github.com/wharflab/tscheck/internal/diagnostic"
)

// Processor transforms a slice of diagnostics.
type Processor interface {
	// Name returns the processor's identifier (for debugging/logging).
	Name() string

	// Process applies the processor's logic to diagnostics.
	// Must not modify the input slice; return a new slice if filtering.
	Process(diags []diagnostic.FormattedError, ctx *Context) []diagnostic.FormattedError
}

// Context provides shared state for processors.
// Populated once before running the chain, then passed to each processor.
type Context struct {
	// Root is the project root that paths are made relative to.
	Root string

	// Exclude holds doublestar patterns of files whose diagnostics are dropped.
	Exclude []string

	// Dedupe adds Deduplication to the default chain.
	Dedupe bool

	ignore   map[int]bool
	severity map[int]string
}

// NewContext creates a processor context from the issues settings.
func NewContext(root string, issues config.IssuesConfig) (*Context, error) {
	codes, err := issues.Codes()
	if err != nil {
		return nil, err
	}
	severity, err := issues.Severities()
	if err != nil {
		return nil, err
	}
	ignore := make(map[int]bool, len(codes))
	for _, c := range codes {
		ignore[c] = true
	}
	return &Context{
		Root:     root,
		Exclude:  issues.Exclude,
		Dedupe:   issues.Dedupe,
		ignore:   ignore,
		severity: severity,
	}, nil
}

// Chain runs processors in sequence.
type Chain struct {
	ctx        *Context
	processors []Processor
}

// NewChain creates a new processor chain.
func NewChain(ctx *Context, processors ...Processor) *Chain {
	if ctx == nil {
		ctx = &Context{}
	}
	return &Chain{ctx: ctx, processors: processors}
}

// NewDefaultChain creates the standard chain. Repeated diagnostics are kept
// unless ctx.Dedupe is set.
func NewDefaultChain(ctx *Context) *Chain {
	processors := []Processor{
		NewPathNormalization(),
		NewCodeFilter(),
		NewSeverityOverride(),
		NewPathExclusionFilter(),
	}
	if ctx.Dedupe {
		processors = append(processors, NewDeduplication())
	}
	return NewChain(ctx, processors...)
}

// Process runs all processors in sequence.
func (c *Chain) Process(diags []diagnostic.FormattedError) []diagnostic.FormattedError {
	for _, p := range c.processors {
		diags = p.Process(diags, c.ctx)
	}
	return diags
}

// filterDiagnostics returns a new slice containing only diagnostics where
// keep() returns true.
func filterDiagnostics(
	diags []diagnostic.FormattedError,
	keep func(d diagnostic.FormattedError) bool,
) []diagnostic.FormattedError {
	result := make([]diagnostic.FormattedError, 0, len(diags))
	for _, d := range diags {
		if keep(d) {
			result = append(result, d)
		}
	}
	return result
}

// transformDiagnostics returns a new slice with each diagnostic transformed
// by transform().
func transformDiagnostics(
	diags []diagnostic.FormattedError,
	transform func(d diagnostic.FormattedError) diagnostic.FormattedError,
) []diagnostic.FormattedError {
	result := make([]diagnostic.FormattedError, len(diags))
	for i, d := range diags {
		result[i] = transform(d)
	}
	return result
}
