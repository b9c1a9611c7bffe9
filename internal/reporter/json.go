package reporter

import (
	"encoding/json"
	"io"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// JSONReporter formats diagnostics as JSON.
type JSONReporter struct {
	writer io.Writer
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{writer: w}
}

// JSONOutput is the top-level JSON output structure.
type JSONOutput struct {
	Cycle       int              `json:"cycle"`
	DurationMS  int64            `json:"duration_ms"`
	Diagnostics []JSONDiagnostic `json:"diagnostics"`
	Summary     Summary          `json:"summary"`
}

// JSONDiagnostic is one diagnostic in JSON output. Line and column are
// 1-based and omitted for global diagnostics.
type JSONDiagnostic struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Length   int    `json:"length,omitempty"`
	Category string `json:"category"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	Snippet  string `json:"snippet,omitempty"`
}

// Report implements Reporter.
func (r *JSONReporter) Report(res Result) error {
	out := JSONOutput{
		Cycle:       res.Cycle,
		DurationMS:  res.Duration.Milliseconds(),
		Diagnostics: make([]JSONDiagnostic, 0, len(res.Diagnostics)),
		Summary:     Summarize(res.Diagnostics),
	}
	for i := range res.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, toJSONDiagnostic(&res.Diagnostics[i]))
	}

	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toJSONDiagnostic(d *diagnostic.FormattedError) JSONDiagnostic {
	line, col := position(d)
	jd := JSONDiagnostic{
		File:     d.File(),
		Line:     line,
		Column:   col,
		Category: d.Category.String(),
		Code:     diagnostic.CodeString(d.Code),
		Message:  d.Text,
		Snippet:  d.Snippet,
	}
	if d.Location != nil {
		jd.Length = d.Location.Length
	}
	return jd
}
