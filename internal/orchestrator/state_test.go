package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from  State
		sig   Signal
		watch bool
		want  State
		ok    bool
	}{
		{StateIdle, SignalBegin, false, StateAwaitingWorker, true},
		{StateAwaitingWorker, SignalOnline, false, StateChecking, true},
		{StateAwaitingWorker, SignalWorkerError, false, StateFatal, true},
		{StateChecking, SignalExit, false, StateReporting, true},
		{StateChecking, SignalCycleFinish, true, StateReporting, true},
		{StateChecking, SignalBegin, true, StateChecking, true},
		{StateReporting, SignalReported, false, StateIdle, true},
		{StateReporting, SignalReported, true, StateChecking, true},
		{StateReporting, SignalCycleStart, true, StateReporting, true},
		{StateFatal, SignalReported, true, StateIdle, true},
		{StateFatal, SignalBegin, true, StateAwaitingWorker, true},
		{StateChecking, SignalTeardown, true, StateTerminated, true},
		{StateTerminated, SignalBegin, false, StateTerminated, false},
		{StateIdle, SignalOnline, false, StateIdle, false},
		{StateIdle, SignalReported, false, StateIdle, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.sig.String(), func(t *testing.T) {
			t.Parallel()
			got, ok := next(tt.from, tt.sig, tt.watch)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "awaiting-worker", StateAwaitingWorker.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.Equal(t, "cycle-finish", SignalCycleFinish.String())
	assert.Equal(t, "Signal(-1)", Signal(-1).String())
}
