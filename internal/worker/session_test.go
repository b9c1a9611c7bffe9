package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/engine"
	"github.com/wharflab/tscheck/internal/testutil"
	"github.com/wharflab/tscheck/internal/watchstatus"
)

type recorder struct {
	mu   sync.Mutex
	msgs []Message
	seen chan Message
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan Message, 64)}
}

func (r *recorder) Post(m Message) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
	r.seen <- m
	return nil
}

func (r *recorder) nonLog() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.msgs {
		if m.Kind != KindLog {
			out = append(out, m)
		}
	}
	return out
}

func onceData() Data {
	return Data{ConfigPath: "tsconfig.json", Mode: ModeOnce, NoSnippets: true}
}

func TestRun_OnceTwoDiagnostics(t *testing.T) {
	t.Parallel()

	eng := testutil.NewScriptedEngine(testutil.Script{Diagnostics: []diagnostic.Raw{
		testutil.ErrorDiag(2322, "a.ts", "first"),
		testutil.ErrorDiag(2304, "b.ts", "second"),
	}})
	rec := newRecorder()

	require.NoError(t, Run(context.Background(), eng, onceData(), rec, nil))

	msgs := rec.nonLog()
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, KindDiagnostics, m.Kind)
		require.Len(t, m.Diagnostics, 1)
	}
	assert.Equal(t, "a.ts:1:1\nfirst", msgs[0].Diagnostics[0].Message)
	assert.Equal(t, "b.ts:1:1\nsecond", msgs[1].Diagnostics[0].Message)
}

func TestRun_OnceCleanPublishesNothing(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	require.NoError(t, Run(context.Background(), testutil.NewScriptedEngine(testutil.Script{}), onceData(), rec, nil))
	assert.Empty(t, rec.nonLog())
}

func TestRun_OnceEngineFailure(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	err := Run(context.Background(), testutil.NewScriptedEngine(testutil.Script{Error: "bad config"}), onceData(), rec, nil)

	var engErr *engine.Error
	require.ErrorAs(t, err, &engErr)
	assert.Empty(t, rec.nonLog())
}

func TestRun_UnknownMode(t *testing.T) {
	t.Parallel()

	data := onceData()
	data.Mode = "sometimes"
	err := Run(context.Background(), testutil.NewScriptedEngine(testutil.Script{}), data, newRecorder(), nil)
	require.Error(t, err)
}

// slowLines delays formatting of early diagnostics so later ones would win
// any race if publication were not ordered.
type slowLines struct{}

func (slowLines) Line(_ context.Context, path string, _ int) (string, error) {
	switch path {
	case "slow.ts":
		time.Sleep(30 * time.Millisecond)
	case "medium.ts":
		time.Sleep(10 * time.Millisecond)
	}
	return "", errors.New("no source")
}

func TestSession_OrderSurvivesSlowFormatting(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	s := NewSession(rec, diagnostic.NewFormatter(diagnostic.WithLineSource(slowLines{})), nil)
	defer s.Close()

	eng := testutil.NewScriptedEngine(testutil.Script{Diagnostics: []diagnostic.Raw{
		testutil.ErrorDiag(1, "slow.ts", "one"),
		testutil.ErrorDiag(2, "medium.ts", "two"),
		testutil.ErrorDiag(3, "fast.ts", "three"),
	}})
	require.NoError(t, s.RunOnce(context.Background(), eng, onceData()))

	msgs := rec.nonLog()
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, i+1, m.Diagnostics[0].Code)
	}
}

func TestRun_WatchPublishesDiagnosticsAndReports(t *testing.T) {
	t.Parallel()

	eng := testutil.NewScriptedEngine(testutil.Script{Watch: []testutil.Step{
		{Status: watchstatus.CodeStartingWatch},
		{Diagnostic: ptr(testutil.ErrorDiag(2304, "a.ts", "missing"))},
		{Status: watchstatus.CodeFoundOneError},
	}})
	rec := newRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		data := onceData()
		data.Mode = ModeWatch
		done <- Run(ctx, eng, data, rec, nil)
	}()

	var kinds []Kind
	for len(kinds) < 3 {
		select {
		case m := <-rec.seen:
			if m.Kind != KindLog {
				kinds = append(kinds, m.Kind)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watch messages")
		}
	}
	assert.Equal(t, []Kind{KindReport, KindDiagnostic, KindReport}, kinds)

	msgs := rec.nonLog()
	report, ok := msgs[2].Report()
	require.True(t, ok)
	assert.Equal(t, watchstatus.CodeFoundOneError, report.Code)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRun_WatchEngineFailureAfterDiagnostics(t *testing.T) {
	t.Parallel()

	eng := testutil.NewScriptedEngine(testutil.Script{
		Watch: []testutil.Step{
			{Diagnostic: ptr(testutil.ErrorDiag(2304, "a.ts", "missing"))},
		},
		WatchError: "tsc died",
	})
	rec := newRecorder()
	data := onceData()
	data.Mode = ModeWatch

	err := Run(context.Background(), eng, data, rec, nil)
	var engErr *engine.Error
	require.ErrorAs(t, err, &engErr)
	require.Len(t, rec.nonLog(), 1)
	assert.Equal(t, KindDiagnostic, rec.nonLog()[0].Kind)
}

func TestSession_LogIsOrdered(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	s := NewSession(rec, diagnostic.NewFormatter(diagnostic.WithoutSnippets()), nil)
	defer s.Close()

	s.Log("a", 1)
	s.OnDiagnostic(testutil.ErrorDiag(1, "x.ts", "d"))
	s.Log("b")
	require.NoError(t, s.queue.Drain(context.Background()))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.msgs, 3)
	assert.Equal(t, []string{"a", "1"}, rec.msgs[0].Log)
	assert.Equal(t, KindDiagnostic, rec.msgs[1].Kind)
	assert.Equal(t, []string{"b"}, rec.msgs[2].Log)
}

func TestDataEngineOptionsForceNoEmit(t *testing.T) {
	t.Parallel()

	d := Data{CompilerOptions: engine.CompilerOptions{"noEmit": false, "strict": true}}
	opts := d.EngineOptions()
	assert.Equal(t, true, opts["noEmit"])
	assert.Equal(t, true, opts["strict"])
	assert.Equal(t, false, d.CompilerOptions["noEmit"])
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("watch")
	require.NoError(t, err)
	assert.Equal(t, ModeWatch, m)
	_, err = ParseMode("never")
	assert.Error(t, err)
}

func ptr[T any](v T) *T { return &v }
