package content

import "fmt"

// GenerationIncomplete means the model never produced a usable draft:
// the tool loop ran out of calls or time, or the final answer was missing
// required sections. No partial draft is returned.
type GenerationIncomplete struct {
	Keyword string
	Reason  string
}

func (e *GenerationIncomplete) Error() string {
	return fmt.Sprintf("generation incomplete for %q: %s", e.Keyword, e.Reason)
}

// Error represents a content generation failure other than an incomplete
// draft, such as a provider error.
type Error struct {
	Keyword string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("content error for %q: %s: %v", e.Keyword, e.Message, e.Cause)
	}
	return fmt.Sprintf("content error for %q: %s", e.Keyword, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
