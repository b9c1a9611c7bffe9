// Package diagnostic defines the diagnostics produced by a type-check engine
// and turns them into self-contained, human-readable errors.
package diagnostic

import (
	"strconv"
	"strings"
)

// Location is a span inside a source file. Line and Character are 0-based;
// Character counts UTF-16 code units. A Length of 0 means the engine did not
// report a span width.
type Location struct {
	File      string `json:"file"      msgpack:"file"`
	Line      int    `json:"line"      msgpack:"line"`
	Character int    `json:"character" msgpack:"character"`
	Length    int    `json:"length"    msgpack:"length"`
}

// MessageChain is a diagnostic message with optional elaborations. Next holds
// the nested explanations, each of which may nest further.
type MessageChain struct {
	Text string         `json:"text"           msgpack:"text"`
	Next []MessageChain `json:"next,omitempty" msgpack:"next,omitempty"`
}

// Raw is a diagnostic exactly as the engine reported it.
type Raw struct {
	Category Category     `json:"category"           msgpack:"category"`
	Code     int          `json:"code"               msgpack:"code"`
	Message  MessageChain `json:"message"            msgpack:"message"`
	Location *Location    `json:"location,omitempty" msgpack:"location,omitempty"`
}

// Text returns the flattened message.
func (r Raw) Text() string {
	return Flatten(r.Message)
}

// Flatten joins a message chain into text, outermost message first, one line
// per message. Nested messages are indented two spaces per level, which is how
// the TypeScript compiler prints them.
func Flatten(chain MessageChain) string {
	var b strings.Builder
	flattenInto(&b, chain, 0)
	return b.String()
}

func flattenInto(b *strings.Builder, chain MessageChain, depth int) {
	if depth > 0 {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("  ", depth))
	}
	b.WriteString(chain.Text)
	for _, next := range chain.Next {
		flattenInto(b, next, depth+1)
	}
}

// CodeString renders a diagnostic code the way the compiler prints it, e.g.
// "TS2322". Zero renders as "".
func CodeString(code int) string {
	if code == 0 {
		return ""
	}
	return "TS" + strconv.Itoa(code)
}

// ParseCode accepts "TS2322" or "2322".
func ParseCode(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && strings.EqualFold(s[:2], "ts") {
		s = s[2:]
	}
	return strconv.Atoi(s)
}
