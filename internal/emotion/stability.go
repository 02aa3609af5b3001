package emotion

// StabilityOf derives a steadiness score from the spread of vector values:
// the population variance of all entries, normalized by norm and inverted
// into [0,1]. The metric measures evenness of the distribution, not
// constancy over time; the formula is kept bit-compatible with the state
// files written by earlier releases.
func StabilityOf(v Vector, norm float64) float64 {
	if norm <= 0 {
		norm = DefaultStabilityNorm
	}
	n := float64(len(Labels))

	var sum float64
	for _, l := range Labels {
		sum += v[l]
	}
	mean := sum / n

	var variance float64
	for _, l := range Labels {
		d := v[l] - mean
		variance += d * d
	}
	variance /= n

	return Clamp01(1 - variance/norm)
}
