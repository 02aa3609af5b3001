package session

import "fmt"

// AnalysisError reports that the upstream analyzer failed for a turn. No
// fusion is performed; the previous state passes through unchanged.
type AnalysisError struct {
	Message string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("emotion analysis failed: %s", e.Message)
}

// PersistError surfaces a load or save failure for one session. Save
// failures never roll back the in-memory state; the session continues with
// an un-persisted state until the next successful save.
type PersistError struct {
	SessionKey string
	Err        error
}

func (e PersistError) Error() string {
	return fmt.Sprintf("failed to persist emotion state for session %s: %v", e.SessionKey, e.Err)
}

func (e PersistError) Unwrap() error {
	return e.Err
}
