package reporter

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// GitHubActionsReporter formats diagnostics as GitHub Actions workflow
// commands. These commands appear as annotations in the GitHub Actions UI.
//
// Format: ::{level} file={file},line={line},col={col},title={title}::{message}
//
// See: https://docs.github.com/actions/using-workflows/workflow-commands-for-github-actions#setting-an-error-message
type GitHubActionsReporter struct {
	writer io.Writer
}

// NewGitHubActionsReporter creates a new GitHub Actions reporter.
func NewGitHubActionsReporter(w io.Writer) *GitHubActionsReporter {
	return &GitHubActionsReporter{writer: w}
}

// Report implements Reporter.
func (r *GitHubActionsReporter) Report(res Result) error {
	for i := range res.Diagnostics {
		d := &res.Diagnostics[i]

		var parts []string
		if d.Location != nil {
			line, col := position(d)
			parts = append(parts,
				"file="+escapeGitHubProperty(filepath.ToSlash(d.Location.File)),
				fmt.Sprintf("line=%d", line),
				fmt.Sprintf("col=%d", col))
			if d.Location.Length > 0 {
				parts = append(parts, fmt.Sprintf("endColumn=%d", col+d.Location.Length))
			}
		}
		if code := diagnostic.CodeString(d.Code); code != "" {
			parts = append(parts, "title="+escapeGitHubProperty(code))
		}

		props := ""
		if len(parts) > 0 {
			props = " " + strings.Join(parts, ",")
		}
		if _, err := fmt.Fprintf(r.writer, "::%s%s::%s\n",
			categoryToGitHubLevel(d.Category),
			props,
			escapeGitHubMessage(d.Text),
		); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(r.writer, Summarize(res.Diagnostics).Line())
	return err
}

// GitHub Actions annotation levels.
const (
	ghLevelError   = "error"
	ghLevelWarning = "warning"
	ghLevelNotice  = "notice"
)

// categoryToGitHubLevel maps a diagnostic category to a GitHub Actions level.
// GitHub supports: "error", "warning", "notice", "debug"
func categoryToGitHubLevel(c diagnostic.Category) string {
	switch c {
	case diagnostic.CategoryError:
		return ghLevelError
	case diagnostic.CategoryWarning:
		return ghLevelWarning
	default:
		return ghLevelNotice
	}
}

// escapeGitHubMessage escapes special characters in GitHub Actions workflow command messages.
// Messages use escapeData() rules which escape "%", "\r", "\n" but NOT ":" or ",".
// See: https://github.com/actions/toolkit/blob/main/packages/core/src/command.ts
func escapeGitHubMessage(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}

// escapeGitHubProperty escapes special characters in GitHub Actions workflow command properties.
// Properties (file, title, etc.) use escapeProperty() rules which escape "%", "\r", "\n", ":", and ",".
func escapeGitHubProperty(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	s = strings.ReplaceAll(s, ":", "%3A")
	s = strings.ReplaceAll(s, ",", "%2C")
	return s
}
