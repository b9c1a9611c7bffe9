package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// Error reports an invalid or unreadable configuration.
type Error struct {
	// Path is the config file involved, if any.
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "invalid configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid configuration in %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// SeverityOff drops diagnostics of a code entirely.
const SeverityOff = "off"

var (
	outputFormats = []string{"auto", "text", "json", "sarif", "github-actions", "markdown"}
	colorModes    = []string{"auto", "always", "never"}
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"text", "json"}
	isolations    = []string{"goroutine", "process"}
)

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(key, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: %q is not one of %s", key, value, strings.Join(allowed, ", ")))
		}
	}
	duration := func(key, value string) {
		if value == "" {
			return
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", key))
		}
	}

	if c.Engine.Name == "" {
		errs = append(errs, errors.New("engine.name: must not be empty"))
	}
	duration("engine.terminate-grace", c.Engine.TerminateGrace)
	oneOf("worker.isolation", c.Worker.Isolation, isolations)
	duration("worker.cycle-timeout", c.Worker.CycleTimeout)
	if c.Snippet.MaxFileSize < 0 {
		errs = append(errs, errors.New("snippet.max-file-size: must not be negative"))
	}
	if c.Snippet.CacheSize < 0 {
		errs = append(errs, errors.New("snippet.cache-size: must not be negative"))
	}
	if _, err := c.Issues.Codes(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Issues.Severities(); err != nil {
		errs = append(errs, err)
	}
	oneOf("output.format", c.Output.Format, outputFormats)
	oneOf("output.color", c.Output.Color, colorModes)
	oneOf("log.level", strings.ToLower(c.Log.Level), logLevels)
	oneOf("log.format", c.Log.Format, logFormats)

	return errors.Join(errs...)
}

// Codes parses IgnoreCodes.
func (c IssuesConfig) Codes() ([]int, error) {
	codes := make([]int, 0, len(c.IgnoreCodes))
	for _, s := range c.IgnoreCodes {
		code, err := diagnostic.ParseCode(s)
		if err != nil {
			return nil, fmt.Errorf("issues.ignore-codes: invalid code %q", s)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// Severities parses Severity into code -> level. Levels are a category name
// or SeverityOff.
func (c IssuesConfig) Severities() (map[int]string, error) {
	out := make(map[int]string, len(c.Severity))
	for key, level := range c.Severity {
		code, err := diagnostic.ParseCode(key)
		if err != nil {
			return nil, fmt.Errorf("issues.severity: invalid code %q", key)
		}
		level = strings.ToLower(strings.TrimSpace(level))
		if level != SeverityOff {
			if _, err := diagnostic.ParseCategory(level); err != nil {
				return nil, fmt.Errorf("issues.severity.%s: %w", key, err)
			}
		}
		out[code] = level
	}
	return out, nil
}
