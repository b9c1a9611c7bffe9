package processor

import (
	"path/filepath"
	"strings"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// PathNormalization makes file paths relative to the project root and uses
// forward slashes, so output is identical regardless of OS. The location
// prefix of the rendered message is rewritten to match.
type PathNormalization struct{}

// NewPathNormalization creates a new path normalization processor.
func NewPathNormalization() *PathNormalization {
	return &PathNormalization{}
}

// Name returns the processor's identifier.
func (p *PathNormalization) Name() string {
	return "path-normalization"
}

// Process normalizes all file paths.
func (p *PathNormalization) Process(diags []diagnostic.FormattedError, ctx *Context) []diagnostic.FormattedError {
	return transformDiagnostics(diags, func(d diagnostic.FormattedError) diagnostic.FormattedError {
		if d.Location == nil || d.Location.File == "" {
			return d
		}
		old := d.Location.File
		normalized := normalizePath(old, ctx.Root)
		if normalized == old {
			return d
		}
		loc := *d.Location
		loc.File = normalized
		d.Location = &loc
		if rest, ok := strings.CutPrefix(d.Message, old+":"); ok {
			d.Message = normalized + ":" + rest
		}
		return d
	})
}

func normalizePath(file, root string) string {
	if root != "" && filepath.IsAbs(file) {
		if rel, err := filepath.Rel(root, file); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			file = rel
		}
	}
	// Replace backslashes with forward slashes for cross-platform consistency
	return strings.ReplaceAll(file, "\\", "/")
}
