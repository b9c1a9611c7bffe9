package process

import (
	"fmt"
	"strings"
)

// Error wraps a failure of a child process with its exit code and the tail of
// its stderr.
type Error struct {
	Op       string
	Err      error
	ExitCode *int
	Stderr   string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString("unknown error")
	}
	if e.ExitCode != nil {
		fmt.Fprintf(&b, " (exit=%d)", *e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString("; stderr (tail): ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }
