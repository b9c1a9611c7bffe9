// Package tsc runs type checks with the TypeScript compiler CLI.
package tsc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/engine"
	"github.com/wharflab/tscheck/internal/process"
)

// Name is the registry name of this engine.
const Name = "tsc"

const maxLineBytes = 1 << 20

// Options the engine sets itself; user values for them are ignored.
var reservedOptions = []string{"build", "noEmit", "pretty", "project", "watch", "preserveWatchOutput"}

func init() {
	engine.Register(Name, New)
}

// Engine runs the tsc binary.
type Engine struct {
	spec   engine.Spec
	logger *slog.Logger
}

// New creates a tsc engine. spec.Command, when set, replaces binary lookup.
func New(spec engine.Spec, logger *slog.Logger) (engine.Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{spec: spec, logger: logger.With(slog.String("engine", Name))}, nil
}

// CheckOnce implements engine.Engine.
func (e *Engine) CheckOnce(ctx context.Context, configPath string, opts engine.CompilerOptions) ([]diagnostic.Raw, error) {
	p, dir, err := e.start(configPath, opts, false)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _, _ = p.Terminate() })
	defer stop()

	var diags []diagnostic.Raw
	ps := &parser{
		baseDir:      dir,
		onDiagnostic: func(d diagnostic.Raw) { diags = append(diags, d) },
		onOther:      e.logOther,
	}
	scanErr := scan(p.Stdout(), ps)
	if scanErr != nil {
		_, _ = p.Terminate()
	}
	code, waitErr := p.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if scanErr != nil {
		return nil, &engine.Error{Engine: Name, Op: "check", Err: p.Wrap("read output", scanErr, code)}
	}
	if cfgDiags := configDiagnostics(diags, configPath); len(cfgDiags) > 0 {
		return nil, &engine.Error{Engine: Name, Op: "check", Err: &ConfigError{Path: configPath, Diagnostics: cfgDiags}}
	}
	// 0: clean, 1: diagnostics and nothing emitted, 2: diagnostics and output emitted.
	if code == nil || *code > 2 || (*code != 0 && len(diags) == 0) {
		if waitErr == nil {
			waitErr = errors.New("exited without reporting diagnostics")
		}
		return nil, &engine.Error{Engine: Name, Op: "check", Err: p.Wrap("tsc", waitErr, code)}
	}
	return diags, nil
}

// Watch implements engine.Engine.
func (e *Engine) Watch(
	ctx context.Context,
	configPath string,
	opts engine.CompilerOptions,
	onDiagnostic, onStatus func(diagnostic.Raw),
) error {
	p, dir, err := e.start(configPath, opts, true)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _, _ = p.Terminate() })
	defer stop()

	// tsc keeps watching after rejecting its config; stop it, since nothing
	// it reports until the config changes is a type check.
	var cfgErr *ConfigError
	ps := &parser{
		baseDir: dir,
		onDiagnostic: func(d diagnostic.Raw) {
			if cfgErr != nil {
				return
			}
			if isConfigDiagnostic(d, configPath) {
				cfgErr = &ConfigError{Path: configPath, Diagnostics: []diagnostic.Raw{d}}
				_, _ = p.Terminate()
				return
			}
			onDiagnostic(d)
		},
		onStatus: func(d diagnostic.Raw) {
			if cfgErr != nil {
				return
			}
			if d.Code == 0 {
				e.logger.Debug("unrecognized watch status", slog.String("text", d.Text()))
			}
			onStatus(d)
		},
		onOther: e.logOther,
	}
	scanErr := scan(p.Stdout(), ps)
	if scanErr != nil {
		_, _ = p.Terminate()
	}
	code, waitErr := p.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if cfgErr != nil {
		return &engine.Error{Engine: Name, Op: "watch", Err: cfgErr}
	}
	if scanErr != nil {
		return &engine.Error{Engine: Name, Op: "watch", Err: p.Wrap("read output", scanErr, code)}
	}
	if waitErr == nil {
		waitErr = errors.New("watch exited unexpectedly")
	}
	return &engine.Error{Engine: Name, Op: "watch", Err: p.Wrap("tsc", waitErr, code)}
}

func (e *Engine) start(configPath string, opts engine.CompilerOptions, watch bool) (*process.Process, string, error) {
	op := "check"
	if watch {
		op = "watch"
	}
	info, err := os.Stat(configPath)
	if err != nil {
		return nil, "", &engine.Error{Engine: Name, Op: op, Err: fmt.Errorf("read config: %w", err)}
	}
	if info.IsDir() {
		return nil, "", &engine.Error{Engine: Name, Op: op, Err: fmt.Errorf("config %s is a directory", configPath)}
	}
	dir := filepath.Dir(configPath)

	bin, err := e.command(dir)
	if err != nil {
		return nil, "", &engine.Error{Engine: Name, Op: op, Err: err}
	}
	argv := slices.Concat(bin, Args(configPath, opts, watch))
	e.logger.Debug("starting tsc", slog.Any("argv", argv), slog.String("dir", dir))

	p, err := process.Start(argv, process.Options{
		Dir:            dir,
		NoStdin:        true,
		TerminateGrace: e.spec.TerminateGrace,
	})
	if err != nil {
		return nil, "", &engine.Error{Engine: Name, Op: op, Err: err}
	}
	return p, dir, nil
}

// command returns the argv prefix that runs tsc: the configured command, the
// closest node_modules/.bin/tsc above dir, or tsc from PATH.
func (e *Engine) command(dir string) ([]string, error) {
	if len(e.spec.Command) > 0 {
		return e.spec.Command, nil
	}
	if bin := findLocalBin(dir); bin != "" {
		return []string{bin}, nil
	}
	bin, err := exec.LookPath("tsc")
	if err != nil {
		return nil, fmt.Errorf("tsc not found in node_modules/.bin or PATH: %w", err)
	}
	return []string{bin}, nil
}

func findLocalBin(dir string) string {
	name := "tsc"
	if runtime.GOOS == "windows" {
		name = "tsc.cmd"
	}
	for {
		candidate := filepath.Join(dir, "node_modules", ".bin", name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Args builds the tsc arguments. Diagnostics-only output is forced: --noEmit
// and --pretty false are always present.
func Args(configPath string, opts engine.CompilerOptions, watch bool) []string {
	args := []string{"--project", configPath, "--noEmit", "--pretty", "false"}
	if watch {
		args = append(args, "--watch", "--preserveWatchOutput")
	}

	keys := make([]string, 0, len(opts))
	for k := range opts {
		if !slices.Contains(reservedOptions, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		flag := "--" + k
		switch v := opts[k].(type) {
		case nil:
		case bool:
			if v {
				args = append(args, flag)
			} else {
				args = append(args, flag, "false")
			}
		case string:
			args = append(args, flag, v)
		case int:
			args = append(args, flag, strconv.Itoa(v))
		case int64:
			args = append(args, flag, strconv.FormatInt(v, 10))
		case float64:
			args = append(args, flag, strconv.FormatFloat(v, 'f', -1, 64))
		case []string:
			args = append(args, flag, strings.Join(v, ","))
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			args = append(args, flag, strings.Join(parts, ","))
		default:
			args = append(args, flag, fmt.Sprint(v))
		}
	}
	return args
}

func (e *Engine) logOther(line string) {
	e.logger.Debug("tsc output", slog.String("line", line))
}

func scan(r io.Reader, p *parser) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		p.line(sc.Text())
	}
	p.flush()
	return sc.Err()
}
