//go:build !windows

package tsc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/engine"
	"github.com/wharflab/tscheck/internal/watchstatus"
)

// writeProject creates a tsconfig.json and a fake node_modules/.bin/tsc
// running script. It returns the tsconfig path.
func writeProject(t *testing.T, script string) string {
	t.Helper()
	root := t.TempDir()
	bin := filepath.Join(root, "node_modules", ".bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "tsc"), []byte("#!/bin/sh\n"+script), 0o755))

	pkg := filepath.Join(root, "packages", "app")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	cfg := filepath.Join(pkg, "tsconfig.json")
	require.NoError(t, os.WriteFile(cfg, []byte("{}"), 0o644))
	return cfg
}

func TestCheckOnce_ParsesLocalTsc(t *testing.T) {
	t.Parallel()

	cfg := writeProject(t, `echo "$@" > args.txt
cat <<'OUT'
src/a.ts(10,6): error TS2322: Type 'string' is not assignable to type 'number'.
src/b.ts(2,1): warning TS6133: 'y' is declared but its value is never read.
  Remove it.
OUT
exit 2
`)
	eng, err := New(engine.Spec{Name: Name}, nil)
	require.NoError(t, err)

	diags, err := eng.CheckOnce(context.Background(), cfg, engine.CompilerOptions{"strict": true})
	require.NoError(t, err)
	require.Len(t, diags, 2)

	dir := filepath.Dir(cfg)
	assert.Equal(t, filepath.Join(dir, "src", "a.ts"), diags[0].Location.File)
	assert.Equal(t, 2322, diags[0].Code)
	assert.Equal(t, diagnostic.CategoryWarning, diags[1].Category)
	assert.Equal(t, "'y' is declared but its value is never read.\n  Remove it.", diags[1].Text())

	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "--project "+cfg+" --noEmit --pretty false --strict\n", string(args))
}

func TestCheckOnce_CleanProject(t *testing.T) {
	t.Parallel()

	cfg := writeProject(t, "exit 0\n")
	eng, err := New(engine.Spec{Name: Name}, nil)
	require.NoError(t, err)

	diags, err := eng.CheckOnce(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestCheckOnce_CrashIsEngineError(t *testing.T) {
	t.Parallel()

	cfg := writeProject(t, "echo 'RangeError: Maximum call stack size exceeded' 1>&2\nexit 7\n")
	eng, err := New(engine.Spec{Name: Name}, nil)
	require.NoError(t, err)

	_, err = eng.CheckOnce(context.Background(), cfg, nil)
	var engErr *engine.Error
	require.ErrorAs(t, err, &engErr)
	assert.Contains(t, err.Error(), "exit=7")
	assert.Contains(t, err.Error(), "Maximum call stack size exceeded")
}

func TestCheckOnce_CommandOverride(t *testing.T) {
	t.Parallel()

	cfg := writeProject(t, "exit 9\n")
	eng, err := New(engine.Spec{
		Name:    Name,
		Command: []string{"sh", "-c", `echo "error TS5023: Unknown compiler option '$6'."; exit 1`, "tsc"},
	}, nil)
	require.NoError(t, err)

	_, err = eng.CheckOnce(context.Background(), cfg, engine.CompilerOptions{"bogus": true})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Len(t, cfgErr.Diagnostics, 1)
	assert.Equal(t, 5023, cfgErr.Diagnostics[0].Code)
	assert.Equal(t, "Unknown compiler option '--bogus'.", cfgErr.Diagnostics[0].Message.Text)
}

func TestCheckOnce_MalformedConfigIsEngineError(t *testing.T) {
	t.Parallel()

	cfg := writeProject(t, `cat <<'OUT'
tsconfig.json(3,1): error TS1005: '}' expected.
OUT
exit 1
`)
	eng, err := New(engine.Spec{Name: Name}, nil)
	require.NoError(t, err)

	diags, err := eng.CheckOnce(context.Background(), cfg, nil)
	assert.Nil(t, diags)
	var engErr *engine.Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "check", engErr.Op)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, cfg, cfgErr.Path)
	require.Len(t, cfgErr.Diagnostics, 1)
	assert.Equal(t, 1005, cfgErr.Diagnostics[0].Code)
	assert.Equal(t, cfg, cfgErr.Diagnostics[0].Location.File)
	assert.Contains(t, err.Error(), "'}' expected.")
}

func TestCheckOnce_NoInputsIsEngineError(t *testing.T) {
	t.Parallel()

	cfg := writeProject(t, `echo "error TS18003: No inputs were found in config file 'tsconfig.json'."
exit 2
`)
	eng, err := New(engine.Spec{Name: Name}, nil)
	require.NoError(t, err)

	_, err = eng.CheckOnce(context.Background(), cfg, nil)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 18003, cfgErr.Diagnostics[0].Code)
	assert.Nil(t, cfgErr.Diagnostics[0].Location)
}

func TestWatch_MalformedConfigStopsWithEngineError(t *testing.T) {
	t.Parallel()

	cfg := writeProject(t, `echo "12:00:00 AM - Starting compilation in watch mode..."
echo ""
echo "tsconfig.json(3,1): error TS1005: '}' expected."
echo ""
echo "12:00:00 AM - Found 1 error. Watching for file changes."
exec sleep 10000
`)
	eng, err := New(engine.Spec{Name: Name, TerminateGrace: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	var diags, statuses []diagnostic.Raw
	done := make(chan error, 1)
	go func() {
		done <- eng.Watch(context.Background(), cfg, nil,
			func(d diagnostic.Raw) { diags = append(diags, d) },
			func(d diagnostic.Raw) { statuses = append(statuses, d) })
	}()

	var watchErr error
	select {
	case watchErr = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
	}
	var engErr *engine.Error
	require.ErrorAs(t, watchErr, &engErr)
	assert.Equal(t, "watch", engErr.Op)
	var cfgErr *ConfigError
	require.ErrorAs(t, watchErr, &cfgErr)
	assert.Equal(t, 1005, cfgErr.Diagnostics[0].Code)

	assert.Empty(t, diags)
	require.Len(t, statuses, 1)
	assert.Equal(t, watchstatus.CycleStart, watchstatus.Classify(statuses[0].Code))
}

func TestWatch_EmitsInOrderAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := writeProject(t, `echo "12:00:00 AM - Starting compilation in watch mode..."
echo ""
echo "src/a.ts(1,1): error TS2304: Cannot find name 'x'."
echo "src/a.ts(2,1): error TS2304: Cannot find name 'y'."
echo ""
echo "12:00:01 AM - Found 2 errors. Watching for file changes."
exec sleep 10000
`)
	eng, err := New(engine.Spec{Name: Name, TerminateGrace: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var events []string
	done := make(chan error, 1)
	go func() {
		done <- eng.Watch(ctx, cfg, nil,
			func(d diagnostic.Raw) {
				events = append(events, "diag:"+d.Message.Text)
			},
			func(d diagnostic.Raw) {
				events = append(events, "status:"+watchstatus.Classify(d.Code).String())
				if watchstatus.Classify(d.Code) == watchstatus.CycleFinish {
					cancel()
				}
			})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Equal(t, []string{
		"status:cycle-start",
		"diag:Cannot find name 'x'.",
		"diag:Cannot find name 'y'.",
		"status:cycle-finish",
	}, events)
}

func TestWatch_UnexpectedExit(t *testing.T) {
	t.Parallel()

	cfg := writeProject(t, "echo 'boom' 1>&2\nexit 1\n")
	eng, err := New(engine.Spec{Name: Name}, nil)
	require.NoError(t, err)

	err = eng.Watch(context.Background(), cfg, nil, func(diagnostic.Raw) {}, func(diagnostic.Raw) {})
	var engErr *engine.Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "watch", engErr.Op)
	assert.True(t, strings.Contains(err.Error(), "boom"))
}
