package host

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/engine"
	"github.com/wharflab/tscheck/internal/testutil"
	"github.com/wharflab/tscheck/internal/watchstatus"
	"github.com/wharflab/tscheck/internal/worker"
)

var testWorkerBin string

func TestMain(m *testing.M) {
	bin, err := buildTestWorker()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	testWorkerBin = bin
	os.Exit(m.Run())
}

func buildTestWorker() (string, error) {
	tmp, err := os.MkdirTemp("", "tscheck-testworker-*")
	if err != nil {
		return "", fmt.Errorf("mkdtemp: %w", err)
	}
	binName := "testworker"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	out := filepath.Join(tmp, binName)

	cmd := exec.Command("go", "build", "-trimpath", "-o", out, "./testdata/testworker")
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build test worker: %w", err)
	}
	return out, nil
}

// collect reads events until the channel closes or timeout passes.
func collect(t *testing.T, w Worker, timeout time.Duration) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("worker %d did not finish; got %d events", w.ID(), len(events))
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func scriptedFactory(s *testutil.ScriptedEngine) engine.Factory {
	return func(engine.Spec, *slog.Logger) (engine.Engine, error) { return s, nil }
}

func onceData(spec engine.Spec) worker.Data {
	return worker.Data{ConfigPath: "tsconfig.json", Mode: worker.ModeOnce, Engine: spec, NoSnippets: true}
}

func TestGoroutineSpawner_OnceLifecycle(t *testing.T) {
	t.Parallel()

	eng := testutil.NewScriptedEngine(testutil.Script{Diagnostics: []diagnostic.Raw{
		testutil.ErrorDiag(2322, "a.ts", "bad"),
	}})
	s := &GoroutineSpawner{NewEngine: scriptedFactory(eng)}

	w, err := s.Spawn(context.Background(), onceData(engine.Spec{}))
	require.NoError(t, err)
	events := collect(t, w, 5*time.Second)

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, EventOnline, events[0].Kind)
	last := events[len(events)-1]
	assert.Equal(t, EventExit, last.Kind)
	assert.Equal(t, 0, last.ExitCode)

	var diags []worker.Message
	for _, ev := range events {
		if ev.Kind == EventMessage && ev.Message.Kind == worker.KindDiagnostics {
			diags = append(diags, ev.Message)
		}
	}
	require.Len(t, diags, 1)
	assert.Equal(t, 2322, diags[0].Diagnostics[0].Code)
}

func TestGoroutineSpawner_EngineFailure(t *testing.T) {
	t.Parallel()

	eng := testutil.NewScriptedEngine(testutil.Script{Error: "cannot read tsconfig"})
	w, err := (&GoroutineSpawner{NewEngine: scriptedFactory(eng)}).Spawn(context.Background(), onceData(engine.Spec{}))
	require.NoError(t, err)

	events := collect(t, w, 5*time.Second)
	var errEvent *Event
	for i := range events {
		if events[i].Kind == EventError {
			errEvent = &events[i]
		}
		if events[i].Kind == EventMessage {
			assert.Equal(t, worker.KindLog, events[i].Message.Kind)
		}
	}
	require.NotNil(t, errEvent)
	assert.Contains(t, errEvent.Err.Error(), "cannot read tsconfig")
	assert.Equal(t, EventExit, events[len(events)-1].Kind)
	assert.Equal(t, 1, events[len(events)-1].ExitCode)
}

func TestGoroutineSpawner_UnknownEngine(t *testing.T) {
	t.Parallel()

	w, err := (&GoroutineSpawner{}).Spawn(context.Background(), onceData(engine.Spec{Name: "nope"}))
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventError, EventExit}, kinds(collect(t, w, 5*time.Second)))
}

func TestGoroutineSpawner_TerminateStopsWatch(t *testing.T) {
	t.Parallel()

	eng := testutil.NewScriptedEngine(testutil.Script{Watch: []testutil.Step{
		{Status: watchstatus.CodeStartingWatch},
	}})
	data := onceData(engine.Spec{})
	data.Mode = worker.ModeWatch
	w, err := (&GoroutineSpawner{NewEngine: scriptedFactory(eng)}).Spawn(context.Background(), data)
	require.NoError(t, err)

	ev := <-w.Events()
	assert.Equal(t, EventOnline, ev.Kind)

	require.NoError(t, w.Terminate())
	for ev := range w.Events() {
		assert.NotEqual(t, EventExit, ev.Kind, "terminated workers report nothing more")
	}
	require.NoError(t, w.Terminate())
}

func TestProcessSpawner_OnceLifecycle(t *testing.T) {
	t.Parallel()

	script := testutil.WriteScript(t, testutil.Script{Diagnostics: []diagnostic.Raw{
		testutil.ErrorDiag(2322, "a.ts", "first"),
		testutil.WarningDiag(6133, "b.ts", "second"),
	}})
	s := &ProcessSpawner{Command: []string{testWorkerBin}, TerminateGrace: 50 * time.Millisecond}

	w, err := s.Spawn(context.Background(), onceData(engine.Spec{Name: testutil.ScriptedName, Command: []string{script}}))
	require.NoError(t, err)
	events := collect(t, w, 10*time.Second)

	assert.Equal(t, EventOnline, events[0].Kind)
	assert.Equal(t, EventExit, events[len(events)-1].Kind)
	assert.Equal(t, 0, events[len(events)-1].ExitCode)

	var codes []int
	for _, ev := range events {
		if ev.Kind == EventMessage && ev.Message.Kind == worker.KindDiagnostics {
			codes = append(codes, ev.Message.Diagnostics[0].Code)
		}
	}
	assert.Equal(t, []int{2322, 6133}, codes)
}

func TestProcessSpawner_RemoteEngineError(t *testing.T) {
	t.Parallel()

	script := testutil.WriteScript(t, testutil.Script{Error: "malformed tsconfig"})
	s := &ProcessSpawner{Command: []string{testWorkerBin}}

	w, err := s.Spawn(context.Background(), onceData(engine.Spec{Name: testutil.ScriptedName, Command: []string{script}}))
	require.NoError(t, err)
	events := collect(t, w, 10*time.Second)

	var remote *RemoteError
	for _, ev := range events {
		if ev.Kind == EventError {
			require.ErrorAs(t, ev.Err, &remote)
		}
	}
	require.NotNil(t, remote)
	assert.Contains(t, remote.Message, "malformed tsconfig")
	assert.Equal(t, 1, events[len(events)-1].ExitCode)
}

func TestProcessSpawner_CrashIsReported(t *testing.T) {
	t.Parallel()

	s := &ProcessSpawner{Command: []string{testWorkerBin, "-mode=crash"}}
	w, err := s.Spawn(context.Background(), onceData(engine.Spec{Name: testutil.ScriptedName}))
	if err != nil {
		// The child may exit before the data frame is written.
		assert.Contains(t, err.Error(), "send worker data")
		return
	}
	events := collect(t, w, 10*time.Second)

	assert.Equal(t, []EventKind{EventError, EventExit}, kinds(events))
	assert.Contains(t, events[0].Err.Error(), "heap out of memory")
	assert.Equal(t, 3, events[1].ExitCode)
}

func TestProcessSpawner_GarbageOutputIsFatal(t *testing.T) {
	t.Parallel()

	s := &ProcessSpawner{Command: []string{testWorkerBin, "-mode=garbage"}, TerminateGrace: 50 * time.Millisecond}
	w, err := s.Spawn(context.Background(), onceData(engine.Spec{Name: testutil.ScriptedName}))
	require.NoError(t, err)

	events := collect(t, w, 10*time.Second)
	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[0].Kind)
	assert.Equal(t, EventExit, events[1].Kind)
}

func TestProcessSpawner_TerminateWatch(t *testing.T) {
	t.Parallel()

	script := testutil.WriteScript(t, testutil.Script{Watch: []testutil.Step{
		{Status: watchstatus.CodeStartingWatch},
		{Diagnostic: &diagnostic.Raw{Category: diagnostic.CategoryError, Code: 2304, Message: diagnostic.MessageChain{Text: "x"}}},
		{Status: watchstatus.CodeFoundOneError},
	}})
	data := onceData(engine.Spec{Name: testutil.ScriptedName, Command: []string{script}})
	data.Mode = worker.ModeWatch

	s := &ProcessSpawner{Command: []string{testWorkerBin}, TerminateGrace: 50 * time.Millisecond}
	w, err := s.Spawn(context.Background(), data)
	require.NoError(t, err)

	var got []worker.Kind
	for len(got) < 3 {
		select {
		case ev := <-w.Events():
			if ev.Kind == EventMessage && ev.Message.Kind != worker.KindLog {
				got = append(got, ev.Message.Kind)
			}
		case <-time.After(10 * time.Second):
			t.Fatal("no watch messages")
		}
	}
	assert.Equal(t, []worker.Kind{worker.KindReport, worker.KindDiagnostic, worker.KindReport}, got)

	require.NoError(t, w.Terminate())
	for range w.Events() {
	}
}

func TestParseIsolation(t *testing.T) {
	t.Parallel()

	iso, err := ParseIsolation("process")
	require.NoError(t, err)
	assert.Equal(t, IsolationProcess, iso)
	_, err = ParseIsolation("thread")
	assert.Error(t, err)
	assert.Equal(t, "exit", EventExit.String())
}
