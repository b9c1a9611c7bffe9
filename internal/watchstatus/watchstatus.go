// Package watchstatus maps the status codes a watching type-check engine
// reports onto check-cycle boundaries.
package watchstatus

// Engine status codes that delimit a watch cycle.
const (
	CodeStartingWatch       = 6031 // Starting compilation in watch mode...
	CodeFileChangeDetected  = 6032 // File change detected. Starting incremental compilation...
	CodeFoundOneError       = 6193 // Found 1 error. Watching for file changes.
	CodeFoundErrorsWatching = 6194 // Found N errors. Watching for file changes.
)

// Transition is the effect a status has on the current cycle.
type Transition int

const (
	// None leaves the cycle untouched.
	None Transition = iota
	// CycleStart discards anything accumulated and opens a new cycle.
	CycleStart
	// CycleFinish closes the cycle; its diagnostics are ready to report.
	CycleFinish
)

func (t Transition) String() string {
	switch t {
	case CycleStart:
		return "cycle-start"
	case CycleFinish:
		return "cycle-finish"
	default:
		return "none"
	}
}

// Classify returns the transition for a status code. Unknown codes are None.
func Classify(code int) Transition {
	switch code {
	case CodeStartingWatch, CodeFileChangeDetected:
		return CycleStart
	case CodeFoundOneError, CodeFoundErrorsWatching:
		return CycleFinish
	default:
		return None
	}
}
