package emotion

// Statistics aggregates a trend buffer for the telemetry surface.
type Statistics struct {
	TotalTransitions int               `json:"total_transitions"`
	MostCommon       Label             `json:"most_common_emotion"`
	AverageIntensity float64           `json:"average_intensity"`
	Distribution     map[Label]float64 `json:"emotion_distribution"`
}

// Summarize computes distribution statistics over history entries. An empty
// buffer reports a neutral baseline.
func Summarize(entries []HistoryEntry) Statistics {
	if len(entries) == 0 {
		return Statistics{
			MostCommon:       Neutral,
			AverageIntensity: DefaultIntensity,
			Distribution:     map[Label]float64{},
		}
	}

	counts := make(map[Label]int)
	var totalIntensity float64
	for _, e := range entries {
		counts[e.Primary]++
		totalIntensity += e.Intensity
	}

	most := Labels[0]
	bestCount := -1
	for _, l := range Labels { // lexicographic order keeps ties deterministic
		if c := counts[l]; c > bestCount {
			most = l
			bestCount = c
		}
	}

	dist := make(map[Label]float64, len(counts))
	for l, c := range counts {
		dist[l] = float64(c) / float64(len(entries)) * 100
	}

	return Statistics{
		TotalTransitions: len(entries),
		MostCommon:       most,
		AverageIntensity: totalIntensity / float64(len(entries)),
		Distribution:     dist,
	}
}
