// Package tsconfig locates the TypeScript project configuration a check
// should use.
package tsconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the configuration file looked for inside directories.
const FileName = "tsconfig.json"

// ErrNotFound is matched by the error Find returns when no candidate resolves.
var ErrNotFound = errors.New("tsconfig not found")

// NotFoundError lists the candidates Find tried.
type NotFoundError struct {
	Tried []string
}

func (e *NotFoundError) Error() string {
	if len(e.Tried) == 0 {
		return "tsconfig not found: no candidates"
	}
	return "tsconfig not found; tried " + strings.Join(e.Tried, ", ")
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Candidates returns the lookup order for a check: an explicit path, the
// pipeline's root context, then the working directory. Empty entries are
// dropped.
func Candidates(explicit, contextDir string) []string {
	var out []string
	for _, c := range []string{explicit, contextDir} {
		if c != "" {
			out = append(out, c)
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		out = append(out, cwd)
	}
	return out
}

// Find returns the absolute path of the first candidate that resolves. A
// candidate naming a file resolves to itself; a directory resolves to its
// tsconfig.json when that file exists.
func Find(candidates ...string) (string, error) {
	var tried []string
	for _, c := range candidates {
		if c == "" {
			continue
		}
		abs, err := filepath.Abs(c)
		if err != nil {
			tried = append(tried, c)
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			tried = append(tried, abs)
			continue
		}
		if !info.IsDir() {
			return abs, nil
		}
		inDir := filepath.Join(abs, FileName)
		if fi, err := os.Stat(inDir); err == nil && !fi.IsDir() {
			return inDir, nil
		}
		tried = append(tried, inDir)
	}
	return "", &NotFoundError{Tried: tried}
}
