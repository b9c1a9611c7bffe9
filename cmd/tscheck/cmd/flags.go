package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wharflab/tscheck/internal/config"
)

// checkFlags are shared by check and watch.
func checkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file (default: auto-discover)",
		},
		&cli.StringFlag{
			Name:    "project",
			Aliases: []string{"p"},
			Usage:   "Path to tsconfig.json or its directory",
		},
		&cli.StringFlag{
			Name:  "context",
			Usage: "Build root directory (default: the target directory)",
		},
		&cli.BoolFlag{
			Name:  "emit-error",
			Usage: "Exit with status 1 when type errors are found",
		},
		&cli.StringSliceFlag{
			Name:  "compiler-option",
			Usage: "Compiler option as key=value (can be repeated)",
		},
		&cli.StringFlag{
			Name:  "engine",
			Usage: "Type-check engine",
		},
		&cli.StringFlag{
			Name:  "isolation",
			Usage: "Worker isolation: goroutine, process",
		},
		&cli.StringFlag{
			Name:  "cycle-timeout",
			Usage: "Give up on a check cycle after this long (0s = never)",
		},
		&cli.BoolFlag{
			Name:  "no-snippets",
			Usage: "Do not quote source lines in diagnostics",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob pattern of files whose diagnostics are dropped (can be repeated)",
		},
		&cli.StringSliceFlag{
			Name:  "ignore-code",
			Usage: "Diagnostic code to drop, e.g. TS6133 (can be repeated)",
		},
		&cli.BoolFlag{
			Name:  "dedupe",
			Usage: "Drop repeated diagnostics at the same position",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: auto, text, json, sarif, github-actions, markdown",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output path: stdout, stderr, or file path",
		},
		&cli.BoolFlag{
			Name:    "no-color",
			Usage:   "Disable colored output",
			Sources: cli.EnvVars("NO_COLOR"),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
		},
	}
}

// loadConfig resolves the target directory and loads its configuration with
// flag overrides applied.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	target := cmd.Args().First()
	if target == "" {
		target = "."
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return nil, err
	}

	overrides, err := flagOverrides(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadWithOverrides(target, cmd.String("config"), overrides)
	if err != nil {
		return nil, err
	}
	if cfg.Context == "" {
		cfg.Context = target
	}
	return cfg, nil
}

// flagOverrides maps explicitly set flags onto config keys.
func flagOverrides(cmd *cli.Command) (map[string]any, error) {
	out := make(map[string]any)
	section := func(name string) map[string]any {
		m, ok := out[name].(map[string]any)
		if !ok {
			m = make(map[string]any)
			out[name] = m
		}
		return m
	}

	if cmd.IsSet("project") {
		out["config-path"] = cmd.String("project")
	}
	if cmd.IsSet("context") {
		out["context"] = cmd.String("context")
	}
	if cmd.IsSet("emit-error") {
		out["emit-error"] = cmd.Bool("emit-error")
	}
	if cmd.IsSet("compiler-option") {
		opts, err := parseCompilerOptions(cmd.StringSlice("compiler-option"))
		if err != nil {
			return nil, err
		}
		out["compiler-options"] = opts
	}
	if cmd.IsSet("engine") {
		section("engine")["name"] = cmd.String("engine")
	}
	if cmd.IsSet("isolation") {
		section("worker")["isolation"] = cmd.String("isolation")
	}
	if cmd.IsSet("cycle-timeout") {
		section("worker")["cycle-timeout"] = cmd.String("cycle-timeout")
	}
	if cmd.IsSet("no-snippets") {
		section("snippet")["enabled"] = !cmd.Bool("no-snippets")
	}
	if cmd.IsSet("exclude") {
		section("issues")["exclude"] = cmd.StringSlice("exclude")
	}
	if cmd.IsSet("ignore-code") {
		section("issues")["ignore-codes"] = cmd.StringSlice("ignore-code")
	}
	if cmd.IsSet("dedupe") {
		section("issues")["dedupe"] = cmd.Bool("dedupe")
	}
	if cmd.IsSet("format") {
		section("output")["format"] = cmd.String("format")
	}
	if cmd.IsSet("output") {
		section("output")["path"] = cmd.String("output")
	}
	if cmd.Bool("no-color") {
		section("output")["color"] = "never"
	}
	if cmd.IsSet("log-level") {
		section("log")["level"] = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		section("log")["format"] = cmd.String("log-format")
	}
	return out, nil
}

// parseCompilerOptions turns key=value pairs into typed compiler options.
// Booleans and integers are recognized; anything else stays a string.
func parseCompilerOptions(pairs []string) (map[string]any, error) {
	opts := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid compiler option %q (want key=value)", p)
		}
		value = strings.TrimSpace(value)
		if b, err := strconv.ParseBool(value); err == nil {
			opts[key] = b
		} else if n, err := strconv.Atoi(value); err == nil {
			opts[key] = n
		} else {
			opts[key] = value
		}
	}
	return opts, nil
}
