package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/wharflab/tscheck/internal/config"
	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/engine"
	"github.com/wharflab/tscheck/internal/host"
	"github.com/wharflab/tscheck/internal/logging"
	"github.com/wharflab/tscheck/internal/orchestrator"
	"github.com/wharflab/tscheck/internal/pipeline"
	"github.com/wharflab/tscheck/internal/processor"
	"github.com/wharflab/tscheck/internal/reporter"
	"github.com/wharflab/tscheck/internal/tsconfig"
	"github.com/wharflab/tscheck/internal/version"
)

// session wires one pipeline run: config, orchestrator and reporter.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	orch     *orchestrator.Orchestrator
	compiler *pipeline.Compiler
	rep      reporter.Reporter
	closeOut func() error
}

func newSession(cfg *config.Config, stderr io.Writer) (*session, error) {
	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	if cfg.ConfigFile != "" {
		logger.Debug("config loaded", slog.String("file", cfg.ConfigFile))
	}

	pctx, err := processor.NewContext(cfg.Context, cfg.Issues)
	if err != nil {
		return nil, err
	}

	spawner, err := newSpawner(cfg, stderr, logger)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(orchestrator.Options{
		ConfigPath:      cfg.ConfigPath,
		CompilerOptions: engine.CompilerOptions(cfg.CompilerOptions),
		EmitError:       cfg.EmitError,
		Engine: engine.Spec{
			Name:           cfg.Engine.Name,
			Command:        cfg.Engine.Command,
			TerminateGrace: cfg.Engine.TerminateGraceDuration(),
		},
		CycleTimeout: cfg.Worker.CycleTimeoutDuration(),
		Snippets:     cfg.Snippet.SourceOptions(),
		NoSnippets:   !cfg.Snippet.Enabled,
		Processor:    processor.NewDefaultChain(pctx),
	}, spawner, logger)

	out, closeOut, err := reporter.GetWriter(cfg.Output.Path)
	if err != nil {
		return nil, err
	}
	format, err := reporter.ParseFormat(cfg.Output.Format)
	if err != nil {
		_ = closeOut()
		return nil, err
	}
	opts := reporter.DefaultOptions()
	opts.Format = format
	opts.Writer = out
	opts.Color = colorSetting(cfg.Output.Color)
	opts.ToolVersion = version.RawVersion()
	rep, err := reporter.New(opts)
	if err != nil {
		_ = closeOut()
		return nil, err
	}

	return &session{
		cfg:      cfg,
		logger:   logger,
		orch:     orch,
		compiler: pipeline.NewCompiler(cfg.Context, logger, orch),
		rep:      rep,
		closeOut: closeOut,
	}, nil
}

func newSpawner(cfg *config.Config, stderr io.Writer, logger *slog.Logger) (host.Spawner, error) {
	isolation, err := host.ParseIsolation(cfg.Worker.Isolation)
	if err != nil {
		return nil, err
	}
	if isolation == host.IsolationProcess {
		return &host.ProcessSpawner{
			Env: []string{
				config.EnvPrefix + "LOG_LEVEL=" + cfg.Log.Level,
				config.EnvPrefix + "LOG_FORMAT=" + cfg.Log.Format,
			},
			TerminateGrace: cfg.Engine.TerminateGraceDuration(),
			Stderr:         stderr,
			Logger:         logger,
		}, nil
	}
	return &host.GoroutineSpawner{Logger: logger}, nil
}

func colorSetting(mode string) *bool {
	var b bool
	switch mode {
	case "always":
		b = true
	case "never":
		b = false
	default:
		return nil
	}
	return &b
}

func (s *session) close() {
	s.orch.Teardown()
	if err := s.closeOut(); err != nil {
		s.logger.Warn("close output", slog.Any("error", err))
	}
}

// report prints a finished cycle and returns its exit code.
func (s *session) report(stats *pipeline.Stats, cycleErr error) int {
	code := exitCode(cycleErr)
	if code == ExitConfigError || code == ExitFatal {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cycleErr)
		return code
	}

	diags := diagnostic.FromErrors(stats.Errors, diagnostic.CategoryError)
	diags = append(diags, diagnostic.FromErrors(stats.Warnings, diagnostic.CategoryWarning)...)
	if err := s.rep.Report(reporter.Result{
		Diagnostics: diags,
		Cycle:       stats.Cycle,
		Duration:    stats.Duration(),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write output: %v\n", err)
		return ExitFatal
	}
	return code
}

// exitCode classifies a cycle error.
func exitCode(err error) int {
	var (
		failed *orchestrator.FailedError
		cfgErr *config.Error
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &failed):
		return ExitTypeErrors
	case errors.Is(err, tsconfig.ErrNotFound), errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.Is(err, context.Canceled):
		return ExitSuccess
	default:
		return ExitFatal
	}
}
