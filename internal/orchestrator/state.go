package orchestrator

import "fmt"

// State is the orchestrator's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateAwaitingWorker
	StateChecking
	StateReporting
	StateFatal
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingWorker:
		return "awaiting-worker"
	case StateChecking:
		return "checking"
	case StateReporting:
		return "reporting"
	case StateFatal:
		return "fatal"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Signal drives state transitions.
type Signal int

const (
	SignalBegin Signal = iota
	SignalOnline
	SignalCycleStart
	SignalCycleFinish
	SignalExit
	SignalWorkerError
	SignalReported
	SignalTeardown
)

func (s Signal) String() string {
	switch s {
	case SignalBegin:
		return "begin"
	case SignalOnline:
		return "online"
	case SignalCycleStart:
		return "cycle-start"
	case SignalCycleFinish:
		return "cycle-finish"
	case SignalExit:
		return "exit"
	case SignalWorkerError:
		return "worker-error"
	case SignalReported:
		return "reported"
	case SignalTeardown:
		return "teardown"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

type transitionKey struct {
	from State
	on   Signal
}

// transitions is the lifecycle table. Reported leaves Reporting for Idle in
// one-shot mode; watch mode goes back to Checking instead (see next).
var transitions = map[transitionKey]State{
	{StateIdle, SignalBegin}:    StateAwaitingWorker,
	{StateIdle, SignalTeardown}: StateTerminated,

	{StateAwaitingWorker, SignalOnline}:      StateChecking,
	{StateAwaitingWorker, SignalWorkerError}: StateFatal,
	{StateAwaitingWorker, SignalExit}:        StateFatal,
	{StateAwaitingWorker, SignalTeardown}:    StateTerminated,

	{StateChecking, SignalBegin}:       StateChecking,
	{StateChecking, SignalCycleStart}:  StateChecking,
	{StateChecking, SignalCycleFinish}: StateReporting,
	{StateChecking, SignalExit}:        StateReporting,
	{StateChecking, SignalWorkerError}: StateFatal,
	{StateChecking, SignalTeardown}:    StateTerminated,

	{StateReporting, SignalBegin}:       StateReporting,
	{StateReporting, SignalCycleStart}:  StateReporting,
	{StateReporting, SignalCycleFinish}: StateReporting,
	{StateReporting, SignalReported}:    StateIdle,
	{StateReporting, SignalWorkerError}: StateFatal,
	{StateReporting, SignalTeardown}:    StateTerminated,

	{StateFatal, SignalExit}:     StateFatal,
	{StateFatal, SignalReported}: StateIdle,
	{StateFatal, SignalBegin}:    StateAwaitingWorker,
	{StateFatal, SignalTeardown}: StateTerminated,

	{StateTerminated, SignalTeardown}: StateTerminated,
}

// next returns the state reached from s on sig. ok is false when the table
// has no such transition.
func next(s State, sig Signal, watch bool) (State, bool) {
	to, ok := transitions[transitionKey{s, sig}]
	if !ok {
		return s, false
	}
	if watch && s == StateReporting && sig == SignalReported {
		return StateChecking, true
	}
	return to, true
}
