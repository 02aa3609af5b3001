package emotion

import "time"

// Decay parameters: emotions relax toward a mild neutral baseline when a
// session sits idle between turns.
const (
	decayMinElapsed = time.Minute
	decayRate       = 0.1 // fraction decayed per idle hour
	decayMaxStep    = 0.1 // single application never moves a value further
	neutralBaseline = 0.5
	emotionFloor    = 0.1
)

// Decay returns a copy of s relaxed toward the neutral baseline in
// proportion to the elapsed idle time: neutral rises toward its baseline,
// every other label sinks toward the floor (and to zero once at or below
// it), and intensity drifts back to the default. Elapsed times under a
// minute are a no-op. Decay is pure and is never applied implicitly during
// fusion.
func Decay(s State, elapsed time.Duration) State {
	out := s.Clone()
	if elapsed < decayMinElapsed {
		return out
	}

	step := elapsed.Hours() * decayRate
	if step > decayMaxStep {
		step = decayMaxStep
	}

	for _, l := range Labels {
		val := out.Vector[l]
		if l == Neutral {
			if val < neutralBaseline {
				out.Vector[l] = min(neutralBaseline, val+step)
			}
			continue
		}
		switch {
		case val > emotionFloor:
			out.Vector[l] = max(emotionFloor, val-step)
		case val > 0:
			out.Vector[l] = 0
		}
	}

	if out.Intensity > DefaultIntensity {
		out.Intensity = max(DefaultIntensity, out.Intensity-step)
	} else if out.Intensity < DefaultIntensity {
		out.Intensity = min(DefaultIntensity, out.Intensity+step)
	}

	out.Primary = dominant(out.Vector, s.Primary)
	return out
}
