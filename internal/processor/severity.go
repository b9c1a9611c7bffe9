package processor

import (
	"github.com/wharflab/tscheck/internal/diagnostic"
)

// SeverityOverride applies severity overrides from configuration, e.g.
// downgrading TS7016 to a warning.
type SeverityOverride struct{}

// NewSeverityOverride creates a new severity override processor.
func NewSeverityOverride() *SeverityOverride {
	return &SeverityOverride{}
}

// Name returns the processor's identifier.
func (p *SeverityOverride) Name() string {
	return "severity-override"
}

// Process applies severity overrides from config.
func (p *SeverityOverride) Process(diags []diagnostic.FormattedError, ctx *Context) []diagnostic.FormattedError {
	if len(ctx.severity) == 0 {
		return diags
	}
	return transformDiagnostics(diags, func(d diagnostic.FormattedError) diagnostic.FormattedError {
		override, ok := ctx.severity[d.Code]
		if !ok {
			return d
		}
		cat, err := diagnostic.ParseCategory(override)
		if err != nil {
			// "off" is handled by CodeFilter; anything else was rejected
			// when the config was validated.
			return d
		}
		d.Category = cat
		return d
	})
}
