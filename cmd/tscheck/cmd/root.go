package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	_ "github.com/wharflab/tscheck/internal/engine/tsc" // Register the tsc engine
	"github.com/wharflab/tscheck/internal/version"
)

// Exit codes
const (
	ExitSuccess     = 0 // No type errors, or errors without --emit-error
	ExitTypeErrors  = 1 // Type errors with --emit-error
	ExitConfigError = 2 // Config or tsconfig error
	ExitFatal       = 3 // The worker failed
)

// NewApp creates the CLI application
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "tscheck",
		Usage:   "Run TypeScript type checks in a background worker",
		Version: version.Version(),
		Description: `tscheck type-checks a TypeScript project in a background worker and
reports every error and warning once the check has finished.

Examples:
  tscheck check
  tscheck check --emit-error --format sarif -o results.sarif web/
  tscheck watch -p tsconfig.app.json`,
		Commands: []*cli.Command{
			checkCommand(),
			watchCommand(),
			configCommand(),
			versionCommand(),
			workerCommand(),
		},
	}
}

// Execute runs the CLI application
func Execute() error {
	return NewApp().Run(context.Background(), os.Args)
}
