package processor

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// PathExclusionFilter removes diagnostics reported in files matching the
// configured exclusion patterns. Diagnostics without a file are kept.
type PathExclusionFilter struct{}

// NewPathExclusionFilter creates a new path exclusion filter processor.
func NewPathExclusionFilter() *PathExclusionFilter {
	return &PathExclusionFilter{}
}

// Name returns the processor's identifier.
func (p *PathExclusionFilter) Name() string {
	return "path-exclusion-filter"
}

// Process filters out diagnostics for files that match exclusion patterns.
func (p *PathExclusionFilter) Process(diags []diagnostic.FormattedError, ctx *Context) []diagnostic.FormattedError {
	if len(ctx.Exclude) == 0 {
		return diags
	}
	return filterDiagnostics(diags, func(d diagnostic.FormattedError) bool {
		file := d.File()
		if file == "" {
			return true
		}
		return !isExcluded(file, ctx.Exclude)
	})
}

// isExcluded matches a path against patterns three ways: the whole path, the
// base name, and every suffix subpath, so "vendor/**" matches a vendor
// directory at any depth.
func isExcluded(path string, excludePatterns []string) bool {
	// Normalize path to forward slashes for doublestar (which always uses /)
	pathSlash := filepath.ToSlash(path)
	base := filepath.ToSlash(filepath.Base(path))
	parts := splitPath(filepath.FromSlash(path))

	for _, pattern := range excludePatterns {
		pattern = filepath.ToSlash(pattern)

		if matched, err := doublestar.Match(pattern, pathSlash); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
		for i := range parts {
			subpath := filepath.ToSlash(filepath.Join(parts[i:]...))
			if matched, err := doublestar.Match(pattern, subpath); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// splitPath splits a path into its individual directory and filename components.
// For example, "/home/user/vendor/a.ts" returns ["home", "user", "vendor", "a.ts"].
// On Windows, "C:\foo\bar" returns ["foo", "bar"] (drive letter is stripped).
func splitPath(path string) []string {
	var parts []string
	for path != "" {
		dir, file := filepath.Split(path)
		if file != "" {
			parts = append([]string{file}, parts...)
		}
		path = filepath.Clean(dir)

		if path == "/" || path == "." {
			break
		}

		vol := filepath.VolumeName(path)
		if vol != "" && (path == vol || path == vol+string(filepath.Separator)) {
			break
		}
	}
	return parts
}
