package tsc

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/watchstatus"
)

type collected struct {
	diags    []diagnostic.Raw
	statuses []diagnostic.Raw
	other    []string
	order    []string
}

func parseAll(t *testing.T, baseDir, output string) *collected {
	t.Helper()
	c := &collected{}
	p := &parser{
		baseDir: baseDir,
		onDiagnostic: func(d diagnostic.Raw) {
			c.diags = append(c.diags, d)
			c.order = append(c.order, "diag")
		},
		onStatus: func(d diagnostic.Raw) {
			c.statuses = append(c.statuses, d)
			c.order = append(c.order, "status")
		},
		onOther: func(s string) { c.other = append(c.other, s) },
	}
	require.NoError(t, scan(strings.NewReader(output), p))
	return c
}

func TestParser_LocatedDiagnostic(t *testing.T) {
	t.Parallel()

	base := filepath.FromSlash("/proj")
	c := parseAll(t, base, "src/a.ts(10,6): error TS2322: Type 'string' is not assignable to type 'number'.\n")

	require.Len(t, c.diags, 1)
	d := c.diags[0]
	assert.Equal(t, diagnostic.CategoryError, d.Category)
	assert.Equal(t, 2322, d.Code)
	assert.Equal(t, "Type 'string' is not assignable to type 'number'.", d.Message.Text)
	require.NotNil(t, d.Location)
	assert.Equal(t, filepath.Join(base, "src", "a.ts"), d.Location.File)
	assert.Equal(t, 9, d.Location.Line)
	assert.Equal(t, 5, d.Location.Character)
	assert.Equal(t, 0, d.Location.Length)
}

func TestParser_MessageChain(t *testing.T) {
	t.Parallel()

	out := strings.Join([]string{
		"src/b.ts(3,7): error TS2322: Type '{ a: string; }' is not assignable to type 'T'.",
		"  Types of property 'a' are incompatible.",
		"    Type 'string' is not assignable to type 'number'.",
		"  Second elaboration.",
		"src/c.ts(1,1): warning TS6133: 'x' is declared but its value is never read.",
	}, "\n")
	c := parseAll(t, "", out)

	require.Len(t, c.diags, 2)
	assert.Equal(t, "Type '{ a: string; }' is not assignable to type 'T'.\n"+
		"  Types of property 'a' are incompatible.\n"+
		"    Type 'string' is not assignable to type 'number'.\n"+
		"  Second elaboration.", c.diags[0].Text())
	assert.Equal(t, diagnostic.CategoryWarning, c.diags[1].Category)
	assert.Equal(t, filepath.Clean("src/c.ts"), c.diags[1].Location.File)
}

func TestParser_GlobalDiagnostic(t *testing.T) {
	t.Parallel()

	c := parseAll(t, "", "error TS18003: No inputs were found in config file 'tsconfig.json'.\n")
	require.Len(t, c.diags, 1)
	assert.Nil(t, c.diags[0].Location)
	assert.Equal(t, 18003, c.diags[0].Code)
}

func TestParser_WatchStatuses(t *testing.T) {
	t.Parallel()

	out := strings.Join([]string{
		"\x1bc12:00:00 AM - Starting compilation in watch mode...",
		"",
		"src/a.ts(1,1): error TS2304: Cannot find name 'x'.",
		"",
		"[12:00:01 AM] Found 1 error. Watching for file changes.",
		"12:00:05 - File change detected. Starting incremental compilation...",
		"12:00:06 - Found 0 errors. Watching for file changes.",
		"12:00:07 - Found 12 errors. Watching for file changes.",
		"12:00:08 - Something else entirely.",
		"Version 5.6.2",
	}, "\n")
	c := parseAll(t, "", out)

	codes := make([]int, 0, len(c.statuses))
	for _, s := range c.statuses {
		codes = append(codes, s.Code)
	}
	assert.Equal(t, []int{
		watchstatus.CodeStartingWatch,
		watchstatus.CodeFoundOneError,
		watchstatus.CodeFileChangeDetected,
		watchstatus.CodeFoundErrorsWatching,
		watchstatus.CodeFoundErrorsWatching,
		0,
	}, codes)
	assert.Equal(t, []string{"status", "diag", "status", "status", "status", "status", "status"}, c.order)
	assert.Equal(t, []string{"Version 5.6.2"}, c.other)
}

func TestParser_DiagnosticFlushedBeforeStatus(t *testing.T) {
	t.Parallel()

	out := "a.ts(1,1): error TS1: one\n" +
		"  nested\n" +
		"12:00:01 AM - Found 1 error. Watching for file changes.\n"
	c := parseAll(t, "", out)

	require.Equal(t, []string{"diag", "status"}, c.order)
	assert.Equal(t, "one\n  nested", c.diags[0].Text())
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 6031, statusCode("Starting compilation in watch mode..."))
	assert.Equal(t, 6032, statusCode("File change detected. Starting incremental compilation..."))
	assert.Equal(t, 6193, statusCode("Found 1 error. Watching for file changes."))
	assert.Equal(t, 6194, statusCode("Found 3 errors. Watching for file changes."))
	assert.Equal(t, 0, statusCode("Found 3 errors in 2 files."))
}
