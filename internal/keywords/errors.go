// Package keywords defines the canonical keyword record and ingestion of
// keyword candidates from uploaded spreadsheets.
package keywords

import "fmt"

// ValidationError represents a spreadsheet or record that cannot be
// ingested. It is scoped to one file; other files in the same batch are
// unaffected.
type ValidationError struct {
	File    string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.File != "" {
		if e.Cause != nil {
			return fmt.Sprintf("validation error in %s: %s: %v", e.File, e.Message, e.Cause)
		}
		return fmt.Sprintf("validation error in %s: %s", e.File, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
