// Package sourcemap gives line-oriented access to source files so diagnostics
// can quote the offending line.
package sourcemap

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// SourceMap indexes a source file by line. All line numbers are 0-based.
type SourceMap struct {
	source      []byte
	lines       []string
	lineOffsets []int
}

// New indexes source. Lines are split on \n; a trailing \r is dropped so CRLF
// files quote cleanly.
func New(source []byte) *SourceMap {
	rawLines := bytes.Split(source, []byte{'\n'})
	lines := make([]string, len(rawLines))
	lineOffsets := make([]int, len(rawLines))

	offset := 0
	for i, line := range rawLines {
		lineOffsets[i] = offset
		lines[i] = strings.TrimSuffix(string(line), "\r")
		offset += len(line) + 1
	}

	return &SourceMap{
		source:      source,
		lines:       lines,
		lineOffsets: lineOffsets,
	}
}

// LineCount returns the number of lines. Empty input has one empty line.
func (sm *SourceMap) LineCount() int {
	return len(sm.lines)
}

// Line returns line i without its terminator, or "" when out of range.
func (sm *SourceMap) Line(i int) string {
	if i < 0 || i >= len(sm.lines) {
		return ""
	}
	return sm.lines[i]
}

// HasLine reports whether line i exists.
func (sm *SourceMap) HasLine(i int) bool {
	return i >= 0 && i < len(sm.lines)
}

// LineOffset returns the byte offset where line i starts, or -1.
func (sm *SourceMap) LineOffset(i int) int {
	if i < 0 || i >= len(sm.lineOffsets) {
		return -1
	}
	return sm.lineOffsets[i]
}

// Snippet joins lines start..end (inclusive) with newlines. The range is
// clamped; an empty range yields "".
func (sm *SourceMap) Snippet(start, end int) string {
	start = max(start, 0)
	end = min(end, len(sm.lines)-1)
	if start > end || start >= len(sm.lines) {
		return ""
	}
	return strings.Join(sm.lines[start:end+1], "\n")
}

// Position converts a byte offset into a 0-based line and UTF-16 column, the
// unit TypeScript reports character positions in. Offsets past the end clamp
// to the last position.
func (sm *SourceMap) Position(offset int) (line, character int) {
	if offset < 0 {
		return 0, 0
	}
	offset = min(offset, len(sm.source))

	lo, hi := 0, len(sm.lineOffsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if sm.lineOffsets[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	for _, r := range string(sm.source[sm.lineOffsets[lo]:offset]) {
		if r == utf8.RuneError {
			character++
			continue
		}
		if r >= 0x10000 {
			character += 2
		} else {
			character++
		}
	}
	return lo, character
}

// Source returns the raw content. The slice must not be modified.
func (sm *SourceMap) Source() []byte {
	return sm.source
}
