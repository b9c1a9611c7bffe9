package processor

import (
	"github.com/wharflab/tscheck/internal/config"
	"github.com/wharflab/tscheck/internal/diagnostic"
)

// CodeFilter removes diagnostics for ignored codes and for codes whose
// severity is configured as "off".
type CodeFilter struct{}

// NewCodeFilter creates a new code filter processor.
func NewCodeFilter() *CodeFilter {
	return &CodeFilter{}
}

// Name returns the processor's identifier.
func (p *CodeFilter) Name() string {
	return "code-filter"
}

// Process filters out diagnostics for disabled codes.
func (p *CodeFilter) Process(diags []diagnostic.FormattedError, ctx *Context) []diagnostic.FormattedError {
	if len(ctx.ignore) == 0 && len(ctx.severity) == 0 {
		return diags
	}
	return filterDiagnostics(diags, func(d diagnostic.FormattedError) bool {
		if ctx.ignore[d.Code] {
			return false
		}
		return ctx.severity[d.Code] != config.SeverityOff
	})
}
