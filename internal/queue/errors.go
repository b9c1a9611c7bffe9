package queue

import "fmt"

// PanicError carries the value a task panicked with.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("queue task panicked: %v", e.Value)
}
