package reporter

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/muesli/termenv"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// Styles for different parts of the output
var (
	// Color detection using termenv (respects NO_COLOR, CLICOLOR_FORCE, terminal detection)
	useColors = termenv.EnvColorProfile() != termenv.Ascii

	// Diagnostic code style
	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Gray

	// File location style
	fileLocStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // Blue

	// Line number gutter style
	lineNumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // Dark gray

	// Marker style for the caret line
	markerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")) // Red

	summaryStyle = lipgloss.NewStyle().Bold(true)

	categoryStyles = map[diagnostic.Category]lipgloss.Style{
		diagnostic.CategoryError: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		diagnostic.CategoryWarning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")), // Orange
		diagnostic.CategorySuggestion: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")), // Blue
		diagnostic.CategoryMessage: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("245")), // Gray
	}
)

// TextOptions configures the text reporter output.
type TextOptions struct {
	// Color enables/disables colored output. Default: auto-detect.
	Color *bool
}

// TextReporter prints diagnostics in the layout of tsc's pretty output:
//
//	src/index.ts:10:6 - error TS2322: Type 'string' is not assignable to type 'number'.
//
//	10 let  bad: number = 'x';
//	        ^^^
type TextReporter struct {
	writer io.Writer
	color  bool
}

// NewTextReporter creates a new text reporter with the given options.
func NewTextReporter(w io.Writer, opts TextOptions) *TextReporter {
	color := useColors
	if opts.Color != nil {
		color = *opts.Color
	}
	return &TextReporter{writer: w, color: color}
}

// Report implements Reporter.
func (r *TextReporter) Report(res Result) error {
	var b strings.Builder
	for i := range res.Diagnostics {
		r.writeDiagnostic(&b, &res.Diagnostics[i])
	}

	summary := Summarize(res.Diagnostics).Line()
	if res.Duration > 0 {
		summary = strings.TrimSuffix(summary, ".") + fmt.Sprintf(" in %s.", res.Duration.Round(time.Millisecond))
	}
	b.WriteString(r.style(summaryStyle, summary))
	b.WriteString("\n")

	_, err := io.WriteString(r.writer, b.String())
	return err
}

func (r *TextReporter) writeDiagnostic(b *strings.Builder, d *diagnostic.FormattedError) {
	catStyle, ok := categoryStyles[d.Category]
	if !ok {
		catStyle = categoryStyles[diagnostic.CategoryWarning]
	}

	if d.Location != nil {
		b.WriteString(r.style(fileLocStyle, diagnostic.Prefix(*d.Location)))
		b.WriteString(" - ")
	}
	b.WriteString(r.style(catStyle, d.Category.String()))
	if code := diagnostic.CodeString(d.Code); code != "" {
		b.WriteString(" ")
		b.WriteString(r.style(codeStyle, code))
	}
	b.WriteString(": ")
	b.WriteString(d.Text)
	b.WriteString("\n")

	if d.Snippet != "" && d.Location != nil {
		gutter := strconv.Itoa(d.Location.Line + 1)
		blank := strings.Repeat(" ", len(gutter))
		b.WriteString("\n")
		b.WriteString(r.style(lineNumStyle, gutter))
		b.WriteString(" ")
		b.WriteString(d.Snippet)
		b.WriteString("\n")
		b.WriteString(r.style(lineNumStyle, blank))
		b.WriteString(" ")
		b.WriteString(r.style(markerStyle, diagnostic.CaretLine(d.Location.Character, d.Location.Length)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (r *TextReporter) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}
