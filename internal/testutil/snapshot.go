package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/gkampitakis/ciinfo"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// MatchTextSnapshot compares content against a standalone snapshot file byte
// for byte. go-snaps' standalone snapshots pass content through kr/pretty,
// whose tabwriter expands tabs; reporter output must stay exact.
//
// Follows go-snaps' naming convention for standalone snapshots:
//
//	__snapshots__/<TestName>_1.snap<ext>
//
// Set UPDATE_SNAPS=true to rewrite snapshots. Missing snapshots are created
// outside CI and fail inside it, as with go-snaps.
func MatchTextSnapshot(tb testing.TB, ext, content string) {
	tb.Helper()

	_, callerFile, _, ok := runtime.Caller(1)
	if !ok {
		tb.Fatal("testutil.MatchTextSnapshot: unable to determine caller")
	}

	name := strings.ReplaceAll(tb.Name(), "/", "_")
	snapFile := filepath.Join(filepath.Dir(callerFile), "__snapshots__", name+"_1.snap"+ext)

	prev, err := os.ReadFile(snapFile)
	missing := os.IsNotExist(err)
	if os.Getenv("UPDATE_SNAPS") == "true" || (missing && !ciinfo.IsCI) {
		if err := os.MkdirAll(filepath.Dir(snapFile), 0o750); err != nil {
			tb.Fatalf("mkdir snapshot dir: %v", err)
		}
		if err := os.WriteFile(snapFile, []byte(content), 0o644); err != nil { //nolint:gosec // test-only snapshot
			tb.Fatalf("write snapshot: %v", err)
		}
		return
	}
	if err != nil {
		tb.Fatalf("snapshot not found: %s\nRun with UPDATE_SNAPS=true to create", snapFile)
	}

	if string(prev) != content {
		dmp := diffmatchpatch.New()
		diffs := dmp.DiffMain(string(prev), content, true)
		diffs = dmp.DiffCleanupSemanticLossless(diffs)
		patches := dmp.PatchMake(string(prev), diffs)
		tb.Errorf("snapshot mismatch: %s\n%s", snapFile, dmp.PatchToText(patches))
	}
}
