package reporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

func TestGitHubActionsReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewGitHubActionsReporter(&buf)

	if err := reporter.Report(Result{Diagnostics: sampleDiagnostics()}); err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"::error file=src/index.ts,line=10,col=5,endColumn=8,title=TS2322::Type 'string' is not assignable to type 'number'.",
		"::warning file=src/util.ts,line=1,col=7,endColumn=13,title=TS6133::'unused' is declared but its value is never read.",
		"::error title=TS5023::Unknown compiler option 'foo'.",
		"Found 2 errors and 1 warning.",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d:\n got: %s\nwant: %s", i, lines[i], want[i])
		}
	}
}

func TestGitHubActionsReporter_Escaping(t *testing.T) {
	var buf bytes.Buffer
	diags := []diagnostic.FormattedError{{
		Category: diagnostic.CategorySuggestion,
		Text:     "100% broken\nsecond line",
		Location: &diagnostic.Location{File: "dir,with:odd.ts"},
	}}
	if err := NewGitHubActionsReporter(&buf).Report(Result{Diagnostics: diags}); err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	first := strings.SplitN(buf.String(), "\n", 2)[0]
	if first != "::notice file=dir%2Cwith%3Aodd.ts,line=1,col=1::100%25 broken%0Asecond line" {
		t.Errorf("unexpected annotation: %s", first)
	}
}
