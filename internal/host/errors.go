package host

import "fmt"

// PanicError reports a session that panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panicked: %v", e.Value)
}

// RemoteError is a session failure reported by a child process.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}
