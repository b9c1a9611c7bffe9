package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	backoff "github.com/cenkalti/backoff/v5"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wharflab/tscheck/internal/orchestrator"
	"github.com/wharflab/tscheck/internal/pipeline"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Type-check a project and re-check on every change",
		ArgsUsage: "[DIR]",
		Flags:     checkFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return cli.Exit("", ExitConfigError)
			}
			s, err := newSession(cfg, os.Stderr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return cli.Exit("", ExitConfigError)
			}
			defer s.close()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return s.watch(ctx, newProgress(os.Stderr, "Type checking"))
		},
	}
}

// watch reports every cycle until ctx ends. Worker failures are reported
// and the next cycle starts a fresh worker after a growing delay.
func (s *session) watch(ctx context.Context, sp *progress) error {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 500 * time.Millisecond
	retry.MaxInterval = 30 * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sp.Run(gctx) })
	g.Go(func() error {
		defer sp.Close()
		sp.Start()
		return s.compiler.Watch(gctx, func(stats *pipeline.Stats, err error) error {
			sp.Stop()
			defer sp.Start()

			code := s.report(stats, err)
			if code == ExitConfigError {
				return cli.Exit("", code)
			}

			var fatal *orchestrator.FatalError
			if !errors.As(err, &fatal) {
				retry.Reset()
				return nil
			}
			delay := retry.NextBackOff()
			s.logger.Warn("worker failed, restarting",
				slog.Int("worker", fatal.WorkerID),
				slog.Duration("delay", delay))
			select {
			case <-gctx.Done():
			case <-time.After(delay):
			}
			return nil
		})
	})
	return g.Wait()
}
