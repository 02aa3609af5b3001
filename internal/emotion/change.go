package emotion

import "fmt"

// ChangeStable marks a turn that left both the primary emotion and its
// intensity effectively unchanged.
const ChangeStable = "stable"

// intensityThreshold is the minimum intensity delta reported as a
// strengthening or weakening of the current emotion.
const intensityThreshold = 0.1

// Classify labels the transition from prev to cur for display and
// telemetry. A nil prev marks the session's first observation. The label
// never feeds back into the fusion math.
func Classify(prev *State, cur State) string {
	if prev == nil {
		return ChangeInitial
	}
	if cur.Primary != prev.Primary {
		return fmt.Sprintf("transition: %s → %s", prev.Primary, cur.Primary)
	}
	switch delta := cur.Intensity - prev.Intensity; {
	case delta > intensityThreshold:
		return fmt.Sprintf("intensified: %s", cur.Primary)
	case delta < -intensityThreshold:
		return fmt.Sprintf("weakened: %s", cur.Primary)
	default:
		return ChangeStable
	}
}
