package emotion

import "time"

// Fusion tunables. Zero values in Options select these.
const (
	// DefaultAlpha is the blended-mode smoothing factor: the weight a single
	// turn's raw vector carries against the accumulated state.
	DefaultAlpha = 0.3
	// DefaultStabilityNorm divides the vector's population variance when
	// deriving the blended-mode stability score.
	DefaultStabilityNorm = 1000.0
)

// Options tunes the fusion math per deployment.
type Options struct {
	Alpha         float64
	StabilityNorm float64
}

func (o Options) withDefaults() Options {
	if o.Alpha <= 0 || o.Alpha > 1 {
		o.Alpha = DefaultAlpha
	}
	if o.StabilityNorm <= 0 {
		o.StabilityNorm = DefaultStabilityNorm
	}
	return o
}

// Fuse merges one observation into the previous canonical state and returns
// the next state. It is a pure function over (state, observation): change
// classification, history recording and persistence are the caller's job.
//
// With an analyzer-supplied state the observation is adopted directly after
// validation. Otherwise every label is blended as an exponential moving
// average, new = (1-alpha)*previous + alpha*raw, so a single noisy turn
// cannot swing the persona's mood while sustained shifts still track.
func Fuse(prev State, obs Observation, opts Options) (State, error) {
	opts = opts.withDefaults()

	next := State{Timestamp: time.Now().UTC()}

	if obs.Current != nil {
		v, err := obs.Current.Vector.validate("current_state.emotions")
		if err != nil {
			return State{}, err
		}
		if !KnownLabel(obs.Current.Primary) {
			return State{}, &ValidationError{Field: "current_state.primary_emotion", Reason: "unknown emotion label " + string(obs.Current.Primary)}
		}
		next.Vector = v
		next.Stability = Clamp01(obs.Current.Stability)
	} else {
		raw, err := obs.Vector.validate("detected_emotions")
		if err != nil {
			return State{}, err
		}
		prevVec := prev.Vector.Clone()
		v := NewVector()
		for _, l := range Labels {
			v[l] = Clamp01((1-opts.Alpha)*prevVec[l] + opts.Alpha*raw[l])
		}
		next.Vector = v
		next.Stability = StabilityOf(v, opts.StabilityNorm)
	}

	next.Primary = dominant(next.Vector, prev.Primary)
	next.Intensity = next.Vector[next.Primary]
	return next, nil
}
