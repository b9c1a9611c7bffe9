// Package config provides configuration loading and discovery for tscheck.
//
// Configuration is loaded from multiple sources with the following priority
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (TSCHECK_* prefix)
//  3. Config file (closest .tscheck.toml, tscheck.toml, .tscheck.yaml or tscheck.yaml)
//  4. Built-in defaults
//
// Config file discovery walks up the filesystem from the project directory
// until a config file is found. The closest config wins (no merging).
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/fileval"
)

// ConfigFileNames defines the config file names to search for, in priority order.
var ConfigFileNames = []string{".tscheck.toml", "tscheck.toml", ".tscheck.yaml", "tscheck.yaml"}

// EnvPrefix is the prefix for environment variables.
const EnvPrefix = "TSCHECK_"

// Config represents the complete tscheck configuration.
type Config struct {
	// ConfigPath is the tsconfig file or directory to check. Empty means
	// the context directory, then the working directory.
	ConfigPath string `koanf:"config-path" toml:"config-path,omitempty"`

	// Context is the build's root directory.
	Context string `koanf:"context" toml:"context,omitempty"`

	// EmitError fails a check cycle that reports any error.
	EmitError bool `koanf:"emit-error" toml:"emit-error"`

	// CompilerOptions are forwarded to the engine. noEmit is always forced on.
	CompilerOptions map[string]any `koanf:"compiler-options" toml:"compiler-options,omitempty"`

	Engine  EngineConfig  `koanf:"engine"  toml:"engine"`
	Worker  WorkerConfig  `koanf:"worker"  toml:"worker"`
	Snippet SnippetConfig `koanf:"snippet" toml:"snippet"`
	Issues  IssuesConfig  `koanf:"issues"  toml:"issues"`
	Output  OutputConfig  `koanf:"output"  toml:"output"`
	Log     LogConfig     `koanf:"log"     toml:"log"`

	// ConfigFile is the path to the config file that was loaded (if any).
	// This is metadata, not loaded from config.
	ConfigFile string `koanf:"-" toml:"-"`
}

// EngineConfig selects the type-check engine.
//
// Example TOML configuration:
//
//	[engine]
//	name = "tsc"
//	command = ["npx", "tsc"]
//	terminate-grace = "2s"
type EngineConfig struct {
	Name string `koanf:"name" toml:"name"`

	// Command overrides the engine's executable argv.
	Command []string `koanf:"command" toml:"command,omitempty"`

	// TerminateGrace is how long a stopped engine may take to exit before it
	// is killed.
	TerminateGrace string `koanf:"terminate-grace" toml:"terminate-grace"`
}

// WorkerConfig configures the background worker.
type WorkerConfig struct {
	// Isolation is "goroutine" or "process".
	Isolation string `koanf:"isolation" toml:"isolation"`

	// CycleTimeout bounds the wait for a check cycle. "0s" waits forever.
	CycleTimeout string `koanf:"cycle-timeout" toml:"cycle-timeout"`
}

// SnippetConfig configures source snippets in formatted diagnostics.
type SnippetConfig struct {
	// Enabled attaches the offending source line to each diagnostic.
	Enabled bool `koanf:"enabled" toml:"enabled"`

	// MaxFileSize is the largest file read for a snippet, in bytes.
	MaxFileSize int64 `koanf:"max-file-size" toml:"max-file-size"`

	// ReadAttempts bounds retries of a file that disappeared mid-save.
	ReadAttempts uint `koanf:"read-attempts" toml:"read-attempts"`

	// CacheSize is the number of indexed source files kept in memory.
	CacheSize int `koanf:"cache-size" toml:"cache-size"`
}

// IssuesConfig filters and rewrites reported diagnostics.
//
// Example TOML configuration:
//
//	[issues]
//	exclude = ["**/*.generated.ts", "vendor/**"]
//	ignore-codes = ["TS6133"]
//	dedupe = true
//
//	[issues.severity]
//	TS7016 = "warning"
//	TS6385 = "off"
type IssuesConfig struct {
	// Exclude drops diagnostics in files matching these doublestar globs.
	Exclude []string `koanf:"exclude" toml:"exclude,omitempty"`

	// IgnoreCodes drops diagnostics with these codes ("TS6133" or "6133").
	IgnoreCodes []string `koanf:"ignore-codes" toml:"ignore-codes,omitempty"`

	// Severity overrides the category of a code: error, warning,
	// suggestion, message or off.
	Severity map[string]string `koanf:"severity" toml:"severity,omitempty"`

	// Dedupe drops repeats of a diagnostic already reported at the same
	// position with the same code and text. Off by default.
	Dedupe bool `koanf:"dedupe" toml:"dedupe,omitempty"`
}

// OutputConfig configures output formatting and behavior.
type OutputConfig struct {
	// Format specifies the output format.
	Format string `koanf:"format" toml:"format"`

	// Path specifies where to write output.
	Path string `koanf:"path" toml:"path"`

	// Color is "auto", "always" or "never".
	Color string `koanf:"color" toml:"color"`
}

// LogConfig configures diagnostic logging on stderr.
type LogConfig struct {
	Level  string `koanf:"level"  toml:"level"`
	Format string `koanf:"format" toml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:           "tsc",
			TerminateGrace: "2s",
		},
		Worker: WorkerConfig{
			Isolation:    "goroutine",
			CycleTimeout: "0s",
		},
		Snippet: SnippetConfig{
			Enabled:      true,
			MaxFileSize:  fileval.DefaultMaxFileSize,
			ReadAttempts: diagnostic.DefaultReadAttempts,
			CacheSize:    diagnostic.DefaultCacheSize,
		},
		Output: OutputConfig{
			Format: "auto",
			Path:   "stdout",
			Color:  "auto",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// TerminateGraceDuration returns the parsed engine terminate grace.
func (c EngineConfig) TerminateGraceDuration() time.Duration {
	return parseDuration(c.TerminateGrace)
}

// CycleTimeoutDuration returns the parsed cycle timeout; zero disables it.
func (c WorkerConfig) CycleTimeoutDuration() time.Duration {
	return parseDuration(c.CycleTimeout)
}

// SourceOptions converts the snippet settings for the source reader.
func (c SnippetConfig) SourceOptions() diagnostic.SourceOptions {
	return diagnostic.SourceOptions{
		MaxFileSize:  c.MaxFileSize,
		ReadAttempts: c.ReadAttempts,
		CacheSize:    c.CacheSize,
	}
}

// parseDuration parses a validated duration; invalid input yields zero.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// Load loads configuration for a project directory or file.
// It discovers the closest config file, loads it, and applies
// environment variable overrides.
func Load(targetPath string) (*Config, error) {
	return loadWithConfigPath(Discover(targetPath), nil)
}

// LoadFromFile loads configuration from a specific config file path.
// Unlike Load, it does not perform config discovery.
func LoadFromFile(configPath string) (*Config, error) {
	return loadWithConfigPath(configPath, nil)
}

func loadWithConfigPath(configPath string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, err
	}

	// 2. Load config file if provided
	if err := loadConfigFile(k, configPath); err != nil {
		return nil, err
	}

	// 3. Load environment variables (TSCHECK_* prefix)
	// TSCHECK_WORKER_CYCLE_TIMEOUT -> worker.cycle-timeout
	if err := loadEnv(k); err != nil {
		return nil, err
	}

	// 4. CLI flag overrides
	if err := loadOverrides(k, overrides); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &Error{Path: configPath, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Path: configPath, Err: err}
	}

	cfg.ConfigFile = configPath
	return &cfg, nil
}

// knownHyphenatedKeys maps dot-separated patterns to their hyphenated equivalents.
var knownHyphenatedKeys = map[string]string{
	"config.path":     "config-path",
	"emit.error":      "emit-error",
	"terminate.grace": "terminate-grace",
	"cycle.timeout":   "cycle-timeout",
	"max.file.size":   "max-file-size",
	"read.attempts":   "read-attempts",
	"cache.size":      "cache-size",
	"ignore.codes":    "ignore-codes",
}

var allowedEnvTopLevelKeys = map[string]struct{}{
	"config-path": {},
	"context":     {},
	"emit-error":  {},
	"engine":      {},
	"worker":      {},
	"snippet":     {},
	"issues":      {},
	"output":      {},
	"log":         {},
}

// envKeyTransform converts environment variable names to config keys.
// TSCHECK_EMIT_ERROR -> emit-error
// TSCHECK_OUTPUT_FORMAT -> output.format
func envKeyTransform(k, v string) (string, any) {
	s := strings.TrimPrefix(k, EnvPrefix)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", ".")
	for pattern, replacement := range knownHyphenatedKeys {
		s = strings.ReplaceAll(s, pattern, replacement)
	}

	topLevel := s
	if before, _, ok := strings.Cut(s, "."); ok {
		topLevel = before
	}
	if _, ok := allowedEnvTopLevelKeys[topLevel]; !ok {
		return "", nil
	}

	return s, v
}

// Discover finds the closest config file for a project directory or file.
// It walks up the directory tree checking for config files at each level.
// Returns empty string if no config file is found.
func Discover(targetPath string) string {
	absPath, err := filepath.Abs(targetPath)
	if err != nil {
		return ""
	}

	dir := absPath
	if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
		dir = filepath.Dir(absPath)
	}

	for {
		for _, name := range ConfigFileNames {
			configPath := filepath.Join(dir, name)
			if fileExists(configPath) {
				return configPath
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func loadConfigFile(k *koanf.Koanf, configPath string) error {
	if configPath == "" {
		return nil
	}
	var parser koanf.Parser = toml.Parser()
	if isYAML(configPath) {
		parser = YAMLParser()
	}
	if err := k.Load(file.Provider(configPath), parser); err != nil {
		return &Error{Path: configPath, Err: err}
	}
	return nil
}

func loadEnv(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKeyTransform,
	}), nil)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
