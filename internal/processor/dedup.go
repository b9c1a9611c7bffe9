package processor

import (
	"fmt"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// Deduplication removes repeated diagnostics. Two diagnostics are duplicates
// when they share file, position, code and text; the compiler repeats some
// diagnostics when a file is reached through several project references.
type Deduplication struct{}

// NewDeduplication creates a new deduplication processor.
func NewDeduplication() *Deduplication {
	return &Deduplication{}
}

// Name returns the processor's identifier.
func (p *Deduplication) Name() string {
	return "deduplication"
}

// Process removes duplicate diagnostics, keeping the first occurrence.
func (p *Deduplication) Process(diags []diagnostic.FormattedError, _ *Context) []diagnostic.FormattedError {
	seen := make(map[string]bool)
	return filterDiagnostics(diags, func(d diagnostic.FormattedError) bool {
		key := fmt.Sprintf("%d:%s", d.Code, d.Text)
		if d.Location != nil {
			key = fmt.Sprintf("%s:%d:%d:%s", d.Location.File, d.Location.Line, d.Location.Character, key)
		}
		if seen[key] {
			return false
		}
		seen[key] = true
		return true
	})
}
