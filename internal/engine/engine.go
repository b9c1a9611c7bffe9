// Package engine defines the contract between a check session and the
// external type-check engine that produces diagnostics.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// CompilerOptions are engine options layered over the config file. Keys use
// the engine's own spelling (for tsc: "strict", "target", ...).
type CompilerOptions map[string]any

// Clone returns a shallow copy that callers may modify.
func (o CompilerOptions) Clone() CompilerOptions {
	out := make(CompilerOptions, len(o)+1)
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Spec selects and configures an engine. It is serializable so a worker in
// another process can rebuild the same engine.
type Spec struct {
	Name           string        `json:"name"                      msgpack:"name"`
	Command        []string      `json:"command,omitempty"         msgpack:"command,omitempty"`
	TerminateGrace time.Duration `json:"terminate-grace,omitempty" msgpack:"terminate_grace,omitempty"`
}

// Engine runs type checks.
type Engine interface {
	// CheckOnce checks the project once and returns every diagnostic in the
	// order the engine reported them. Diagnostics are not failures; err is
	// set only when the check itself could not run.
	CheckOnce(ctx context.Context, configPath string, opts CompilerOptions) ([]diagnostic.Raw, error)

	// Watch checks continuously until ctx ends. Diagnostics go to
	// onDiagnostic and cycle status reports to onStatus, both in emission
	// order and from a single goroutine. Watch returns ctx.Err() when
	// stopped, or an error if the engine dies on its own.
	Watch(ctx context.Context, configPath string, opts CompilerOptions, onDiagnostic, onStatus func(diagnostic.Raw)) error
}

// Factory builds an engine from a spec.
type Factory func(spec Spec, logger *slog.Logger) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an engine available under name. Engines register from init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Names lists registered engines in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New builds the engine named by spec.
func New(spec Spec, logger *slog.Logger) (Engine, error) {
	registryMu.RLock()
	f, ok := registry[spec.Name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (available: %s)", spec.Name, strings.Join(Names(), ", "))
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return f(spec, logger)
}

// Error reports that an engine could not perform a check, as opposed to the
// check finding problems.
type Error struct {
	Engine string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return e.Engine + " " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
