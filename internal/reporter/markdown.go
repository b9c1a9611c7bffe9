package reporter

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// MarkdownReporter formats diagnostics as concise markdown tables.
// Designed for AI agents fixing type errors: token-efficient and actionable.
type MarkdownReporter struct {
	writer io.Writer
}

// NewMarkdownReporter creates a new Markdown reporter.
func NewMarkdownReporter(w io.Writer) *MarkdownReporter {
	return &MarkdownReporter{writer: w}
}

// Report implements Reporter.
func (r *MarkdownReporter) Report(res Result) error {
	if len(res.Diagnostics) == 0 {
		_, err := fmt.Fprintln(r.writer, "**No issues found**")
		return err
	}

	s := Summarize(res.Diagnostics)
	header := fmt.Sprintf("**%d %s**", s.Total, pluralize(s.Total, "issue", "issues"))
	switch s.Files {
	case 0:
	case 1:
		header += fmt.Sprintf(" in `%s`", filepath.ToSlash(res.Diagnostics[firstWithFile(res.Diagnostics)].File()))
	default:
		header += fmt.Sprintf(" across %d files", s.Files)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n| File | Line | Code | Issue |\n|------|------|------|-------|\n")
	for i := range res.Diagnostics {
		d := &res.Diagnostics[i]
		file := "-"
		if f := d.File(); f != "" {
			file = filepath.ToSlash(f)
		}
		code := diagnostic.CodeString(d.Code)
		if code == "" {
			code = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s %s |\n",
			file, formatLineNumber(d), code, categoryEmoji(d.Category), escapeMarkdown(d.Text))
	}

	_, err := io.WriteString(r.writer, b.String())
	return err
}

func firstWithFile(diags []diagnostic.FormattedError) int {
	for i := range diags {
		if diags[i].File() != "" {
			return i
		}
	}
	return 0
}

// formatLineNumber returns the display string for a diagnostic's line number.
func formatLineNumber(d *diagnostic.FormattedError) string {
	if line, _ := position(d); line > 0 {
		return strconv.Itoa(line)
	}
	return "-"
}

// categoryEmoji returns an emoji indicator for the category.
func categoryEmoji(c diagnostic.Category) string {
	switch c {
	case diagnostic.CategoryError:
		return "❌"
	case diagnostic.CategoryWarning:
		return "⚠️"
	case diagnostic.CategorySuggestion:
		return "💡"
	default:
		return "ℹ️"
	}
}

// escapeMarkdown escapes special markdown characters in table cells.
func escapeMarkdown(s string) string {
	// Escape pipe characters which break table formatting
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
