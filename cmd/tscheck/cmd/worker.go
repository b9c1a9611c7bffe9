package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wharflab/tscheck/internal/config"
	"github.com/wharflab/tscheck/internal/host"
	"github.com/wharflab/tscheck/internal/logging"
)

// workerCommand is the entry point of a process-isolated worker. The parent
// speaks to it over stdin and stdout.
func workerCommand() *cli.Command {
	return &cli.Command{
		Name:   host.WorkerCommand,
		Usage:  "Run a check worker on stdin/stdout (internal)",
		Hidden: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Sources: cli.EnvVars(config.EnvPrefix + "LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Sources: cli.EnvVars(config.EnvPrefix + "LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger, err := logging.New(os.Stderr, cmd.String("log-level"), cmd.String("log-format"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return cli.Exit("", ExitConfigError)
			}
			err = host.Serve(ctx, os.Stdin, os.Stdout, nil, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				return cli.Exit("", ExitFatal)
			}
			return nil
		},
	}
}
