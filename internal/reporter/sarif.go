package reporter

import (
	"io"
	"strconv"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

const (
	defaultToolName = "tscheck"
	defaultToolURI  = "https://github.com/wharflab/tscheck"
	diagnosticsURI  = "https://typescript.tv/errors/#ts"
)

// SARIFReporter formats diagnostics as SARIF 2.1.0.
type SARIFReporter struct {
	writer      io.Writer
	toolName    string
	toolVersion string
	toolURI     string
}

// NewSARIFReporter creates a new SARIF reporter.
func NewSARIFReporter(w io.Writer, toolName, toolVersion, toolURI string) *SARIFReporter {
	if toolName == "" {
		toolName = defaultToolName
	}
	if toolURI == "" {
		toolURI = defaultToolURI
	}
	return &SARIFReporter{
		writer:      w,
		toolName:    toolName,
		toolVersion: toolVersion,
		toolURI:     toolURI,
	}
}

// Report implements Reporter.
func (r *SARIFReporter) Report(res Result) error {
	rep := sarif.NewReport()

	run := sarif.NewRunWithInformationURI(r.toolName, r.toolURI)
	if r.toolVersion != "" {
		run.Tool.Driver.WithVersion(r.toolVersion)
	}

	rules := make(map[string]bool)
	for i := range res.Diagnostics {
		d := &res.Diagnostics[i]
		ruleID := ruleIDFor(d)

		if !rules[ruleID] {
			rules[ruleID] = true
			rule := run.AddRule(ruleID).
				WithShortDescription(sarif.NewMultiformatMessageString().WithText(ruleID))
			if d.Code > 0 {
				rule.WithHelpURI(diagnosticsURI + strconv.Itoa(d.Code))
			}
		}

		result := sarif.NewRuleResult(ruleID).
			WithMessage(sarif.NewTextMessage(d.Text)).
			WithLevel(categoryToSARIFLevel(d.Category))

		if d.Location != nil {
			run.AddDistinctArtifact(d.Location.File)

			line, col := position(d)
			region := sarif.NewRegion().
				WithStartLine(line).
				WithStartColumn(col)
			if d.Location.Length > 0 {
				region.WithEndColumn(col + d.Location.Length)
			}
			if d.Snippet != "" {
				region.WithSnippet(sarif.NewArtifactContent().WithText(d.Snippet))
			}

			location := sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewSimpleArtifactLocation(d.Location.File)).
				WithRegion(region)
			result.WithLocations([]*sarif.Location{
				sarif.NewLocationWithPhysicalLocation(location),
			})
		}

		run.AddResult(result)
	}

	rep.AddRun(run)
	return rep.PrettyWrite(r.writer)
}

// ruleIDFor names a diagnostic's rule after its code. Diagnostics without a
// code share a rule named after their category.
func ruleIDFor(d *diagnostic.FormattedError) string {
	if code := diagnostic.CodeString(d.Code); code != "" {
		return code
	}
	return d.Category.String()
}

// categoryToSARIFLevel converts a diagnostic category to a SARIF level.
func categoryToSARIFLevel(c diagnostic.Category) string {
	switch c {
	case diagnostic.CategoryError:
		return "error"
	case diagnostic.CategoryWarning:
		return "warning"
	default:
		return "note"
	}
}
