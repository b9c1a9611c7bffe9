package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/engine"
)

// ScriptedName is the engine name ScriptedFactory should be registered under.
const ScriptedName = "scripted"

// Script describes what a ScriptedEngine reports.
type Script struct {
	// Diagnostics is the result of CheckOnce.
	Diagnostics []diagnostic.Raw `json:"diagnostics,omitempty"`
	// Error makes CheckOnce fail.
	Error string `json:"error,omitempty"`
	// Delay is slept before CheckOnce returns.
	Delay time.Duration `json:"delay,omitempty"`

	// Watch is played back in order by Watch.
	Watch []Step `json:"watch,omitempty"`
	// WatchError ends Watch with this error after the steps; otherwise
	// Watch blocks until its context ends.
	WatchError string `json:"watch_error,omitempty"`
}

// Step is one watch event. Exactly one field is meaningful.
type Step struct {
	Diagnostic *diagnostic.Raw `json:"diagnostic,omitempty"`
	Status     int             `json:"status,omitempty"`
	Sleep      time.Duration   `json:"sleep,omitempty"`
	// Gate blocks until Release(Gate) is called. In-process only.
	Gate string `json:"gate,omitempty"`
}

// ScriptedEngine is an engine.Engine that replays a Script.
type ScriptedEngine struct {
	script Script

	mu    sync.Mutex
	gates map[string]chan struct{}

	calls atomic.Int32
}

// NewScriptedEngine creates an engine replaying s.
func NewScriptedEngine(s Script) *ScriptedEngine {
	return &ScriptedEngine{script: s, gates: make(map[string]chan struct{})}
}

// ScriptedFactory is an engine.Factory reading a JSON Script from the file
// named by spec.Command[0].
func ScriptedFactory(spec engine.Spec, _ *slog.Logger) (engine.Engine, error) {
	if len(spec.Command) == 0 {
		return nil, errors.New("scripted engine needs a script path")
	}
	data, err := os.ReadFile(spec.Command[0])
	if err != nil {
		return nil, err
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return NewScriptedEngine(s), nil
}

// WriteScript stores s as JSON in a temp file and returns its path.
func WriteScript(tb testing.TB, s Script) string {
	tb.Helper()
	data, err := json.Marshal(s)
	if err != nil {
		tb.Fatalf("marshal script: %v", err)
	}
	path := filepath.Join(tb.TempDir(), "script.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write script: %v", err)
	}
	return path
}

// Calls returns how many checks or watches were started.
func (e *ScriptedEngine) Calls() int {
	return int(e.calls.Load())
}

// Release opens a gate, letting Watch continue past it.
func (e *ScriptedEngine) Release(name string) {
	close(e.gate(name))
}

func (e *ScriptedEngine) gate(name string) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.gates[name]
	if !ok {
		ch = make(chan struct{})
		e.gates[name] = ch
	}
	return ch
}

// CheckOnce implements engine.Engine.
func (e *ScriptedEngine) CheckOnce(ctx context.Context, _ string, _ engine.CompilerOptions) ([]diagnostic.Raw, error) {
	e.calls.Add(1)
	if e.script.Delay > 0 {
		select {
		case <-time.After(e.script.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.script.Error != "" {
		return nil, &engine.Error{Engine: ScriptedName, Op: "check", Err: errors.New(e.script.Error)}
	}
	return e.script.Diagnostics, nil
}

// Watch implements engine.Engine.
func (e *ScriptedEngine) Watch(
	ctx context.Context,
	_ string,
	_ engine.CompilerOptions,
	onDiagnostic, onStatus func(diagnostic.Raw),
) error {
	e.calls.Add(1)
	for _, step := range e.script.Watch {
		switch {
		case step.Gate != "":
			select {
			case <-e.gate(step.Gate):
			case <-ctx.Done():
				return ctx.Err()
			}
		case step.Sleep > 0:
			select {
			case <-time.After(step.Sleep):
			case <-ctx.Done():
				return ctx.Err()
			}
		case step.Diagnostic != nil:
			onDiagnostic(*step.Diagnostic)
		default:
			onStatus(diagnostic.Raw{
				Category: diagnostic.CategoryMessage,
				Code:     step.Status,
				Message:  diagnostic.MessageChain{Text: fmt.Sprintf("status %d", step.Status)},
			})
		}
	}
	if e.script.WatchError != "" {
		return &engine.Error{Engine: ScriptedName, Op: "watch", Err: errors.New(e.script.WatchError)}
	}
	<-ctx.Done()
	return ctx.Err()
}

// ErrorDiag returns a located error diagnostic for scripts.
func ErrorDiag(code int, file, text string) diagnostic.Raw {
	return diagnostic.Raw{
		Category: diagnostic.CategoryError,
		Code:     code,
		Message:  diagnostic.MessageChain{Text: text},
		Location: &diagnostic.Location{File: file},
	}
}

// WarningDiag returns a located warning diagnostic for scripts.
func WarningDiag(code int, file, text string) diagnostic.Raw {
	d := ErrorDiag(code, file, text)
	d.Category = diagnostic.CategoryWarning
	return d
}
