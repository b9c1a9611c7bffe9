package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:      "config",
		Usage:     "Print the effective configuration as TOML",
		ArgsUsage: "[DIR]",
		Flags:     checkFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return cli.Exit("", ExitConfigError)
			}
			if cfg.ConfigFile != "" {
				fmt.Fprintf(os.Stdout, "# loaded from %s\n", cfg.ConfigFile)
			}
			return cfg.WriteTOML(os.Stdout)
		},
	}
}
