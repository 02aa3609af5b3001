package emotion

import "time"

// Defaults for a freshly created persona session.
const (
	DefaultIntensity = 0.5
	DefaultStability = 0.7
)

// ChangeInitial marks a session's very first observation.
const ChangeInitial = "initial"

// State is the canonical persona affect at a point in time. A new State is
// produced on every turn and atomically replaces the previous one; earlier
// states survive only inside the trend history.
type State struct {
	Primary      Label
	Intensity    float64
	Stability    float64
	Vector       Vector
	RecentChange string
	Timestamp    time.Time
}

// DefaultState returns the neutral state a session starts from when no
// durable record exists: neutral at the default intensity, every other
// label at zero.
func DefaultState(now time.Time) State {
	v := NewVector()
	v[Neutral] = DefaultIntensity
	return State{
		Primary:      Neutral,
		Intensity:    DefaultIntensity,
		Stability:    DefaultStability,
		Vector:       v,
		RecentChange: ChangeInitial,
		Timestamp:    now,
	}
}

// ResetState returns a state pinned to the given label. An intensity of
// zero or less selects the conventional reset level of 0.8; every other
// label keeps a 0.1 base so the persona never reads as emotionally blank.
func ResetState(l Label, intensity float64, now time.Time) State {
	if intensity <= 0 {
		intensity = 0.8
	}
	intensity = Clamp01(intensity)

	v := NewVector()
	for _, label := range Labels {
		v[label] = 0.1
	}
	v[l] = intensity

	return State{
		Primary:      l,
		Intensity:    intensity,
		Stability:    DefaultStability,
		Vector:       v,
		RecentChange: ChangeInitial,
		Timestamp:    now,
	}
}

// Clone returns a deep copy so callers can hand states across goroutines.
func (s State) Clone() State {
	out := s
	out.Vector = s.Vector.Clone()
	return out
}

// Snapshot reduces the state to its trend-history form.
func (s State) Snapshot() HistoryEntry {
	return HistoryEntry{
		Primary:   s.Primary,
		Intensity: s.Intensity,
		Timestamp: s.Timestamp,
	}
}
