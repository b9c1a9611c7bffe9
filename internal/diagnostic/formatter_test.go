package diagnostic

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLines map[string][]string

func (f fakeLines) Line(_ context.Context, path string, line int) (string, error) {
	lines, ok := f[path]
	if !ok {
		return "", os.ErrNotExist
	}
	if line < 0 || line >= len(lines) {
		return "", errors.New("out of range")
	}
	return lines[line], nil
}

func tenLines(last string) []string {
	lines := make([]string, 10)
	for i := range 9 {
		lines[i] = "// filler"
	}
	lines[9] = last
	return lines
}

func TestFormat_WithSnippet(t *testing.T) {
	t.Parallel()

	f := NewFormatter(WithLineSource(fakeLines{
		"src/a.ts": tenLines(`let x: number = "s";`),
	}))

	got := f.Format(context.Background(), Raw{
		Category: CategoryError,
		Code:     2322,
		Message:  MessageChain{Text: "Type 'string' is not assignable to type 'number'."},
		Location: &Location{File: "src/a.ts", Line: 9, Character: 5, Length: 3},
	})

	want := "src/a.ts:10:6\n" +
		"Type 'string' is not assignable to type 'number'.\n" +
		"\n" +
		`let x: number = "s";` + "\n" +
		"     ^^^"
	assert.Equal(t, want, got.Message)
	assert.True(t, strings.HasSuffix(got.Message, "     ^^^"))
	assert.Equal(t, CategoryError, got.Category)
	assert.Equal(t, 2322, got.Code)
	assert.Equal(t, `let x: number = "s";`, got.Snippet)
	require.NotNil(t, got.Location)
	assert.Equal(t, 9, got.Location.Line)
}

func TestFormat_UnreadableFileKeepsMessage(t *testing.T) {
	t.Parallel()

	f := NewFormatter(WithLineSource(fakeLines{}))
	got := f.Format(context.Background(), Raw{
		Category: CategoryError,
		Code:     2304,
		Message:  MessageChain{Text: "Cannot find name 'foo'."},
		Location: &Location{File: "src/gone.ts", Line: 0, Character: 0, Length: 3},
	})

	assert.Equal(t, "src/gone.ts:1:1\nCannot find name 'foo'.", got.Message)
	assert.Empty(t, got.Snippet)
}

func TestFormat_ZeroLengthIsZeroWidthMarker(t *testing.T) {
	t.Parallel()

	f := NewFormatter(WithLineSource(fakeLines{"a.ts": {"foo();"}}))
	got := f.Format(context.Background(), Raw{
		Category: CategoryWarning,
		Code:     6133,
		Message:  MessageChain{Text: "unused"},
		Location: &Location{File: "a.ts", Line: 0, Character: 2},
	})

	assert.Equal(t, "a.ts:1:3\nunused\n\nfoo();\n  ", got.Message)
}

func TestFormat_GlobalDiagnostic(t *testing.T) {
	t.Parallel()

	f := NewFormatter(WithLineSource(fakeLines{}))
	got := f.Format(context.Background(), Raw{
		Category: CategoryError,
		Code:     18003,
		Message:  MessageChain{Text: "No inputs were found in config file."},
	})

	assert.Equal(t, "No inputs were found in config file.", got.Message)
	assert.Nil(t, got.Location)
	assert.Empty(t, got.File())
}

func TestFormat_MessageChain(t *testing.T) {
	t.Parallel()

	f := NewFormatter(WithoutSnippets())
	got := f.Format(context.Background(), Raw{
		Category: CategoryError,
		Code:     2322,
		Message: MessageChain{
			Text: "Type '{ a: string; }' is not assignable to type 'T'.",
			Next: []MessageChain{{
				Text: "Types of property 'a' are incompatible.",
				Next: []MessageChain{{Text: "Type 'string' is not assignable to type 'number'."}},
			}},
		},
		Location: &Location{File: "b.ts", Line: 1, Character: 0},
	})

	assert.Equal(t, "b.ts:2:1\n"+
		"Type '{ a: string; }' is not assignable to type 'T'.\n"+
		"  Types of property 'a' are incompatible.\n"+
		"    Type 'string' is not assignable to type 'number'.", got.Message)
}

func TestFormat_ReadsFromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "index.ts")
	require.NoError(t, os.WriteFile(path, []byte("const a = 1;\r\nconst b: string = a;\r\n"), 0o644))

	f := NewFormatter()
	got := f.Format(context.Background(), Raw{
		Category: CategoryError,
		Code:     2322,
		Message:  MessageChain{Text: "Type 'number' is not assignable to type 'string'."},
		Location: &Location{File: path, Line: 1, Character: 6, Length: 1},
	})

	assert.Equal(t, "const b: string = a;", got.Snippet)
	assert.True(t, strings.HasSuffix(got.Message, "\n\nconst b: string = a;\n      ^"))
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "only", Flatten(MessageChain{Text: "only"}))
	assert.Equal(t, "a\n  b\n  c", Flatten(MessageChain{
		Text: "a",
		Next: []MessageChain{{Text: "b"}, {Text: "c"}},
	}))
}

func TestCaretLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "   ^^", CaretLine(3, 2))
	assert.Equal(t, "   ", CaretLine(3, 0))
	assert.Empty(t, CaretLine(-1, -1))
}

func TestCodes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "TS2322", CodeString(2322))
	assert.Empty(t, CodeString(0))

	code, err := ParseCode("ts6133")
	require.NoError(t, err)
	assert.Equal(t, 6133, code)

	code, err = ParseCode("2304")
	require.NoError(t, err)
	assert.Equal(t, 2304, code)

	_, err = ParseCode("TSabc")
	assert.Error(t, err)
}

func TestFromErrors(t *testing.T) {
	t.Parallel()

	fe := &FormattedError{Category: CategoryWarning, Code: 6133, Message: "unused"}
	got := FromErrors([]error{fe, errors.New("worker crashed")}, CategoryError)

	require.Len(t, got, 2)
	assert.Equal(t, 6133, got[0].Code)
	assert.Equal(t, CategoryError, got[1].Category)
	assert.Equal(t, "worker crashed", got[1].Message)
}
