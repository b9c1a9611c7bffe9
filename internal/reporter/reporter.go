// Package reporter provides output formatters for check results.
//
// The package supports multiple output formats:
//   - text: Human-readable terminal output with colors
//   - json: Machine-readable JSON output
//   - sarif: Static Analysis Results Interchange Format for CI/CD integration
//   - github-actions: Native GitHub Actions workflow annotations
//   - markdown: Concise markdown tables for AI agents
//
// Every reporter keeps diagnostics in the order the checker produced them.
package reporter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gkampitakis/ciinfo"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// Result is one reported check cycle.
type Result struct {
	Diagnostics []diagnostic.FormattedError
	// Cycle numbers watch iterations from 1; a one-shot check is cycle 1.
	Cycle    int
	Duration time.Duration
}

// Summary contains aggregate statistics about diagnostics.
type Summary struct {
	Total       int `json:"total"`
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
	Suggestions int `json:"suggestions"`
	Messages    int `json:"messages"`
	Files       int `json:"files"`
}

// Summarize computes aggregate statistics.
func Summarize(diags []diagnostic.FormattedError) Summary {
	s := Summary{Total: len(diags)}
	files := make(map[string]struct{})
	for i := range diags {
		switch diags[i].Category {
		case diagnostic.CategoryError:
			s.Errors++
		case diagnostic.CategoryWarning:
			s.Warnings++
		case diagnostic.CategorySuggestion:
			s.Suggestions++
		case diagnostic.CategoryMessage:
			s.Messages++
		}
		if f := diags[i].File(); f != "" {
			files[f] = struct{}{}
		}
	}
	s.Files = len(files)
	return s
}

// Line renders the summary the way tsc ends its output.
func (s Summary) Line() string {
	other := s.Warnings + s.Suggestions + s.Messages
	if s.Errors == 0 && other == 0 {
		return "Found 0 errors."
	}
	line := fmt.Sprintf("Found %d %s", s.Errors, pluralize(s.Errors, "error", "errors"))
	if other > 0 {
		line += fmt.Sprintf(" and %d %s", other, pluralize(other, "warning", "warnings"))
	}
	return line + "."
}

// Reporter formats and outputs check results.
type Reporter interface {
	Report(res Result) error
}

// Format represents an output format type.
type Format string

const (
	// FormatAuto selects github-actions on GitHub Actions and text elsewhere.
	FormatAuto Format = "auto"
	// FormatText is human-readable terminal output.
	FormatText Format = "text"
	// FormatJSON is machine-readable JSON output.
	FormatJSON Format = "json"
	// FormatSARIF is Static Analysis Results Interchange Format.
	FormatSARIF Format = "sarif"
	// FormatGitHubActions is GitHub Actions workflow command output.
	FormatGitHubActions Format = "github-actions"
	// FormatMarkdown is concise markdown tables for AI agents.
	FormatMarkdown Format = "markdown"
)

// ParseFormat parses a format string into a Format type.
// Returns an error if the format is unknown.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "auto", "":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "sarif":
		return FormatSARIF, nil
	case "github-actions", "github":
		return FormatGitHubActions, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format: %q (valid: auto, text, json, sarif, github-actions, markdown)", s)
	}
}

// Resolve turns FormatAuto into a concrete format.
func (f Format) Resolve() Format {
	if f != FormatAuto {
		return f
	}
	if ciinfo.IsCI && os.Getenv("GITHUB_ACTIONS") == "true" {
		return FormatGitHubActions
	}
	return FormatText
}

// Options configures reporter creation.
type Options struct {
	// Format specifies the output format.
	Format Format

	// Writer is the output destination.
	Writer io.Writer

	// Color enables/disables colored output (text format only).
	// nil means auto-detect.
	Color *bool

	// ToolVersion is included in SARIF output.
	ToolVersion string

	// ToolName is the tool name for SARIF output.
	ToolName string

	// ToolURI is the tool information URI for SARIF output.
	ToolURI string
}

// DefaultOptions returns sensible defaults for reporter options.
func DefaultOptions() Options {
	return Options{
		Format:      FormatAuto,
		Writer:      os.Stdout,
		Color:       nil, // auto-detect
		ToolName:    defaultToolName,
		ToolURI:     defaultToolURI,
		ToolVersion: "dev",
	}
}

// New creates a reporter based on the format specified in options.
func New(opts Options) (Reporter, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch opts.Format.Resolve() {
	case FormatText, "":
		return NewTextReporter(opts.Writer, TextOptions{Color: opts.Color}), nil

	case FormatJSON:
		return NewJSONReporter(opts.Writer), nil

	case FormatSARIF:
		return NewSARIFReporter(opts.Writer, opts.ToolName, opts.ToolVersion, opts.ToolURI), nil

	case FormatGitHubActions:
		return NewGitHubActionsReporter(opts.Writer), nil

	case FormatMarkdown:
		return NewMarkdownReporter(opts.Writer), nil

	default:
		return nil, fmt.Errorf("unknown format: %q", opts.Format)
	}
}

// GetWriter returns an io.Writer for the given output path.
// Supports "stdout", "stderr", or file paths.
func GetWriter(path string) (io.Writer, func() error, error) {
	switch path {
	case "stdout", "":
		return os.Stdout, func() error { return nil }, nil
	case "stderr":
		return os.Stderr, func() error { return nil }, nil
	default:
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		return f, f.Close, nil
	}
}

// pluralize returns singular or plural form based on count.
func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// position returns the 1-based line and column of d, or zeros when d has no
// location.
func position(d *diagnostic.FormattedError) (line, col int) {
	if d.Location == nil {
		return 0, 0
	}
	return d.Location.Line + 1, d.Location.Character + 1
}
