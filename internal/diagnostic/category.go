package diagnostic

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is the severity class an engine attaches to a diagnostic. The
// numeric values follow the TypeScript compiler's DiagnosticCategory so they
// survive a round trip through engine output unchanged.
//
//nolint:recvcheck // UnmarshalJSON requires pointer receiver per json.Unmarshaler interface
type Category int

const (
	CategoryWarning Category = iota
	CategoryError
	CategorySuggestion
	CategoryMessage
)

// String returns the lower-case name the engine prints for the category.
func (c Category) String() string {
	switch c {
	case CategoryWarning:
		return "warning"
	case CategoryError:
		return "error"
	case CategorySuggestion:
		return "suggestion"
	case CategoryMessage:
		return "message"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory parses a category name. "warn" and "info" are accepted as
// aliases so severity overrides read naturally in config files.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return CategoryError, nil
	case "warning", "warn":
		return CategoryWarning, nil
	case "suggestion":
		return CategorySuggestion, nil
	case "message", "info":
		return CategoryMessage, nil
	default:
		return CategoryError, fmt.Errorf("unknown diagnostic category: %q", s)
	}
}
