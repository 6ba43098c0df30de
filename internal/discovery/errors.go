package discovery

import "fmt"

// Error represents a keyword discovery failure.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("discovery error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("discovery error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
