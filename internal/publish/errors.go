package publish

import (
	"fmt"
	"strings"
)

// ValidationError means the draft failed local checks; the remote API was
// never called.
type ValidationError struct {
	Keyword string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("publish validation failed for %q: %s: %v", e.Keyword, e.Message, e.Cause)
	}
	return fmt.Sprintf("publish validation failed for %q: %s", e.Keyword, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// RemoteRejection carries the user errors the blog API returned.
type RemoteRejection struct {
	Keyword    string
	UserErrors []UserError
}

func (e *RemoteRejection) Error() string {
	parts := make([]string, 0, len(e.UserErrors))
	for _, ue := range e.UserErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", ue.Field, ue.Message))
	}
	return fmt.Sprintf("article rejected for %q: %s", e.Keyword, strings.Join(parts, ", "))
}

// Error represents any other publication failure, transport errors
// included.
type Error struct {
	Keyword string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("publish error for %q: %s: %v", e.Keyword, e.Message, e.Cause)
	}
	return fmt.Sprintf("publish error for %q: %s", e.Keyword, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
