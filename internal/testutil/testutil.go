// Package testutil provides test helpers shared by tscheck's packages.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFiles creates files under a fresh temporary directory and returns the
// directory. Keys are slash-separated relative paths.
func WriteFiles(tb testing.TB, files map[string]string) string {
	tb.Helper()

	root := tb.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			tb.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			tb.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

// WriteProject creates a minimal project with a tsconfig.json and the given
// extra files, returning the project root.
func WriteProject(tb testing.TB, files map[string]string) string {
	tb.Helper()

	all := map[string]string{"tsconfig.json": `{"compilerOptions":{"strict":true}}`}
	for k, v := range files {
		all[k] = v
	}
	return WriteFiles(tb, all)
}
