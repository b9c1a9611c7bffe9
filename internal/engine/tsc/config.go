package tsc

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// Codes of global diagnostics about the project configuration rather than
// the sources: TS5xxx covers compiler options and config files, TS18002 an
// empty "files" list and TS18003 a config matching no inputs.
const (
	firstOptionCode  = 5000
	lastOptionCode   = 5999
	codeEmptyFiles   = 18002
	codeNoInputFound = 18003
)

// ConfigError reports a project configuration tsc could not use. The check
// never ran, so its diagnostics are not type errors.
type ConfigError struct {
	Path        string
	Diagnostics []diagnostic.Raw
}

func (e *ConfigError) Error() string {
	msg := "invalid project config " + e.Path
	if len(e.Diagnostics) == 0 {
		return msg
	}
	d := e.Diagnostics[0]
	if d.Location != nil {
		msg += ": " + diagnostic.Prefix(*d.Location)
	}
	return msg + ": TS" + strconv.Itoa(d.Code) + ": " + d.Text()
}

// isConfigDiagnostic reports whether d describes the project configuration:
// it points into configPath or another tsconfig/jsconfig file reached through
// "extends", or it is a global diagnostic with a configuration code.
func isConfigDiagnostic(d diagnostic.Raw, configPath string) bool {
	if d.Location != nil && d.Location.File != "" {
		file := filepath.Clean(d.Location.File)
		if file == filepath.Clean(configPath) {
			return true
		}
		base := strings.ToLower(filepath.Base(file))
		return filepath.Ext(base) == ".json" &&
			(strings.HasPrefix(base, "tsconfig") || strings.HasPrefix(base, "jsconfig"))
	}
	switch {
	case d.Code >= firstOptionCode && d.Code <= lastOptionCode:
		return true
	case d.Code == codeEmptyFiles, d.Code == codeNoInputFound:
		return true
	}
	return false
}

// configDiagnostics returns the configuration diagnostics in diags, in order.
func configDiagnostics(diags []diagnostic.Raw, configPath string) []diagnostic.Raw {
	var out []diagnostic.Raw
	for _, d := range diags {
		if isConfigDiagnostic(d, configPath) {
			out = append(out, d)
		}
	}
	return out
}
