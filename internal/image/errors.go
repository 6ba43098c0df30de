package image

import "fmt"

// Error represents an illustration generation failure. The orchestrator
// substitutes the placeholder image when it sees one.
type Error struct {
	Keyword string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("image error for %q: %s: %v", e.Keyword, e.Message, e.Cause)
	}
	return fmt.Sprintf("image error for %q: %s", e.Keyword, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
