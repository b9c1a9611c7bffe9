package diagnostic

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
)

// LineSource supplies source lines for snippets. *SourceReader is the
// production implementation.
type LineSource interface {
	Line(ctx context.Context, path string, line int) (string, error)
}

// Formatter renders Raw diagnostics into FormattedErrors.
type Formatter struct {
	source LineSource
	logger *slog.Logger
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithLineSource overrides where snippet lines are read from.
func WithLineSource(src LineSource) FormatterOption {
	return func(f *Formatter) { f.source = src }
}

// WithoutSnippets disables snippet reading entirely.
func WithoutSnippets() FormatterOption {
	return func(f *Formatter) { f.source = nil }
}

// WithLogger sets the logger used for dropped snippets. Nil is ignored.
func WithLogger(logger *slog.Logger) FormatterOption {
	return func(f *Formatter) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFormatter creates a Formatter that quotes source through a default
// SourceReader.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{
		source: NewSourceReader(SourceOptions{}),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format renders raw. It never fails: when the source line cannot be read the
// snippet is dropped and the rest of the message is kept.
//
// With a location the message reads
//
//	src/a.ts:3:7
//	Type 'string' is not assignable to type 'number'.
//
//	let x: number = "s";
//	      ^
//
// where the location is printed 1-based and the caret line has Character
// spaces followed by Length carets.
func (f *Formatter) Format(ctx context.Context, raw Raw) FormattedError {
	text := Flatten(raw.Message)
	out := FormattedError{
		Category: raw.Category,
		Code:     raw.Code,
		Text:     text,
		Message:  text,
	}
	if raw.Location == nil || raw.Location.File == "" {
		return out
	}

	loc := *raw.Location
	loc.File = filepath.Clean(loc.File)
	out.Location = &loc
	out.Message = Prefix(loc) + "\n" + text

	if f.source == nil {
		return out
	}
	line, err := f.source.Line(ctx, loc.File, loc.Line)
	if err != nil {
		f.logger.DebugContext(ctx, "snippet unavailable",
			slog.String("file", loc.File),
			slog.Int("line", loc.Line+1),
			slog.Any("error", err))
		return out
	}
	out.Snippet = line
	out.Message += "\n\n" + line + "\n" + CaretLine(loc.Character, loc.Length)
	return out
}

// Prefix renders a location as 1-based "file:line:column".
func Prefix(loc Location) string {
	return loc.File + ":" + strconv.Itoa(loc.Line+1) + ":" + strconv.Itoa(loc.Character+1)
}

// CaretLine returns column spaces followed by length carets. Non-positive
// lengths give a marker of zero width.
func CaretLine(column, length int) string {
	return strings.Repeat(" ", max(column, 0)) + strings.Repeat("^", max(length, 0))
}
