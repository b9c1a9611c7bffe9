package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Type-check a project once",
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

			stats, err := s.compiler.Run(ctx)
			if ctx.Err() != nil {
				return cli.Exit("interrupted", ExitFatal)
			}
			if code := s.report(stats, err); code != ExitSuccess {
				return cli.Exit("", code)
			}
			return nil
		},
	}
}
