package emotion

import "fmt"

// ValidationError reports an observation field that failed validation: an
// unknown emotion label or a numeric value outside its declared range that
// cannot be clamped. The observation is rejected and the previous state is
// left unchanged; the caller may drop the turn or resubmit a corrected
// observation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
