package worker

import (
	"fmt"

	"github.com/wharflab/tscheck/internal/diagnostic"
)

// Kind discriminates channel messages.
type Kind string

const (
	// KindLog carries free-form log arguments. Never affects cycle accounting.
	KindLog Kind = "log"
	// KindDiagnostic carries one diagnostic emitted in watch mode.
	KindDiagnostic Kind = "diagnostic"
	// KindDiagnostics carries a batch of diagnostics from a one-shot check.
	KindDiagnostics Kind = "diagnostics"
	// KindReport carries one watch status report.
	KindReport Kind = "report"
)

// Message is what a check session publishes to its orchestrator.
type Message struct {
	Kind        Kind                        `msgpack:"type"`
	Log         []string                    `msgpack:"log,omitempty"`
	Diagnostics []diagnostic.FormattedError `msgpack:"diagnostics,omitempty"`
}

// LogMessage builds a log message; arguments are rendered with %v.
func LogMessage(args ...any) Message {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return Message{Kind: KindLog, Log: parts}
}

// DiagnosticMessage builds a single-diagnostic message.
func DiagnosticMessage(d diagnostic.FormattedError) Message {
	return Message{Kind: KindDiagnostic, Diagnostics: []diagnostic.FormattedError{d}}
}

// DiagnosticsMessage builds a batch message.
func DiagnosticsMessage(ds []diagnostic.FormattedError) Message {
	return Message{Kind: KindDiagnostics, Diagnostics: ds}
}

// ReportMessage builds a status report message.
func ReportMessage(d diagnostic.FormattedError) Message {
	return Message{Kind: KindReport, Diagnostics: []diagnostic.FormattedError{d}}
}

// Report returns the status carried by a report message.
func (m Message) Report() (diagnostic.FormattedError, bool) {
	if m.Kind != KindReport || len(m.Diagnostics) == 0 {
		return diagnostic.FormattedError{}, false
	}
	return m.Diagnostics[0], true
}

// Channel is where a session publishes messages. Post must not reorder.
type Channel interface {
	Post(Message) error
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(Message) error

func (f ChannelFunc) Post(m Message) error { return f(m) }
