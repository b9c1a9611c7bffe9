// Package worker implements the check session that runs inside a background
// worker: it drives an engine, formats what it reports and publishes the
// results, in order, to the orchestrator.
package worker

import (
	"fmt"

	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/engine"
)

// Mode selects between a single check and continuous watching.
type Mode string

const (
	ModeOnce  Mode = "once"
	ModeWatch Mode = "watch"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOnce, ModeWatch:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown worker mode %q", s)
	}
}

// Data is everything a worker needs to start a session. It crosses process
// boundaries, so it holds only plain values.
type Data struct {
	ConfigPath      string                   `msgpack:"config_path"`
	CompilerOptions engine.CompilerOptions   `msgpack:"compiler_options,omitempty"`
	Mode            Mode                     `msgpack:"mode"`
	Engine          engine.Spec              `msgpack:"engine"`
	Snippets        diagnostic.SourceOptions `msgpack:"snippets"`
	NoSnippets      bool                     `msgpack:"no_snippets,omitempty"`
}

// EngineOptions returns the compiler options passed to the engine. Emitting
// output is always disabled.
func (d Data) EngineOptions() engine.CompilerOptions {
	opts := d.CompilerOptions.Clone()
	opts["noEmit"] = true
	return opts
}

// Formatter builds the diagnostic formatter for this session.
func (d Data) Formatter(opts ...diagnostic.FormatterOption) *diagnostic.Formatter {
	if d.NoSnippets {
		opts = append(opts, diagnostic.WithoutSnippets())
	} else {
		opts = append([]diagnostic.FormatterOption{
			diagnostic.WithLineSource(diagnostic.NewSourceReader(d.Snippets)),
		}, opts...)
	}
	return diagnostic.NewFormatter(opts...)
}
