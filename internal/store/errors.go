// Package store provides the versioned tabular dataset store used to hold
// keyword batches and generated-post batches with full version history.
package store

import "fmt"

// ValidationError represents malformed input to a store operation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NotFoundError represents a lookup for an unknown dataset id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset with id %s not found", e.ID)
}

// ConflictError represents a concurrent update detected by the optimistic
// version check on Update.
type ConflictError struct {
	ID       string
	Expected int
	Actual   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict updating dataset %s: expected %d versions, found %d", e.ID, e.Expected, e.Actual)
}

// VersionRangeError represents a restore request for a version index
// outside the dataset's history.
type VersionRangeError struct {
	ID    string
	Index int
	Count int
}

func (e *VersionRangeError) Error() string {
	return fmt.Sprintf("version index %d out of range for dataset %s (%d versions)", e.Index, e.ID, e.Count)
}

// PersistError represents a failure writing the durable artifact. The
// in-memory mutation that triggered the write is rolled back.
type PersistError struct {
	Message string
	Cause   error
}

func (e *PersistError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persist error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("persist error: %s", e.Message)
}

func (e *PersistError) Unwrap() error {
	return e.Cause
}
