package diagnostic

import "errors"

// FormattedError is a diagnostic rendered into a standalone message. It is
// the unit published by a check session and reported by the pipeline, and it
// is an error so it can travel in error lists unchanged.
type FormattedError struct {
	Category Category `json:"category"           msgpack:"category"`
	Code     int      `json:"code"               msgpack:"code"`
	// Message is the full rendering: location prefix, flattened text and an
	// optional source snippet with carets.
	Message string `json:"message" msgpack:"message"`
	// Text is the flattened message without prefix or snippet.
	Text     string    `json:"text"               msgpack:"text"`
	Location *Location `json:"location,omitempty" msgpack:"location,omitempty"`
	// Snippet is the quoted source line, empty when it could not be read.
	Snippet string `json:"snippet,omitempty" msgpack:"snippet,omitempty"`
}

func (e *FormattedError) Error() string {
	return e.Message
}

// File returns the location's file, or "" for global diagnostics.
func (e *FormattedError) File() string {
	if e.Location == nil {
		return ""
	}
	return e.Location.File
}

// FromErrors collects the FormattedErrors found in errs, in order. Any other
// error becomes a global diagnostic of category fallback.
func FromErrors(errs []error, fallback Category) []FormattedError {
	out := make([]FormattedError, 0, len(errs))
	for _, err := range errs {
		var fe *FormattedError
		if errors.As(err, &fe) {
			out = append(out, *fe)
			continue
		}
		out = append(out, FormattedError{
			Category: fallback,
			Message:  err.Error(),
			Text:     err.Error(),
		})
	}
	return out
}
