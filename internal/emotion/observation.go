package emotion

// Role identifies the speaker an observation was derived from.
type Role string

const (
	RoleUser    Role = "user"
	RolePersona Role = "persona"
)

// TextEmotion is the upstream analyzer's result for a single utterance.
type TextEmotion struct {
	Text             string             `json:"text"`
	PrimaryEmotion   string             `json:"primary_emotion"`
	Confidence       float64            `json:"confidence"`
	SentimentScore   float64            `json:"sentiment_score"`
	DetectedEmotions map[string]float64 `json:"detected_emotions"`
	AnalysisTimeMs   float64            `json:"analysis_time_ms"`
}

// CurrentState is the analyzer's optional pre-aggregated state. When
// present it triggers authoritative fusion: the analyzer already merged the
// user and persona turns and smoothed the result.
type CurrentState struct {
	PrimaryEmotion string             `json:"primary_emotion"`
	Intensity      float64            `json:"intensity"`
	Stability      float64            `json:"stability"`
	Emotions       map[string]float64 `json:"emotions"`
}

// TurnResult is the full per-turn record delivered by the upstream
// analyzer. Statistics is opaque and passed through to telemetry untouched.
type TurnResult struct {
	UserEmotion  *TextEmotion   `json:"user_emotion,omitempty"`
	AIEmotion    *TextEmotion   `json:"ai_emotion,omitempty"`
	CurrentState *CurrentState  `json:"current_state,omitempty"`
	Statistics   map[string]any `json:"statistics,omitempty"`
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
}

// Observation is the single per-turn signal the fusion engine consumes. It
// is produced from a TurnResult, consumed exactly once, and not retained
// afterwards except through the derived State.
type Observation struct {
	Role       Role
	Vector     Vector
	Current    *AuthoritativeState
	Confidence float64
	Sentiment  float64
}

// AuthoritativeState is an analyzer-supplied ready-made state adopted
// directly in authoritative fusion mode.
type AuthoritativeState struct {
	Primary   Label
	Intensity float64
	Stability float64
	Vector    Vector
}

// ObservationFromTurn validates a turn record and derives the observation
// fused this turn. When both the user and persona results are present their
// detected vectors are merged confidence-weighted; when the analyzer
// supplies a pre-aggregated state it wins outright.
func ObservationFromTurn(res TurnResult) (Observation, error) {
	if res.CurrentState != nil {
		return authoritativeObservation(res)
	}

	user := res.UserEmotion
	ai := res.AIEmotion
	if user == nil && ai == nil {
		return Observation{}, &ValidationError{Field: "turn", Reason: "no emotion result present"}
	}

	switch {
	case ai == nil:
		return blendedObservation(RoleUser, user)
	case user == nil:
		return blendedObservation(RolePersona, ai)
	}

	uo, err := blendedObservation(RoleUser, user)
	if err != nil {
		return Observation{}, err
	}
	ao, err := blendedObservation(RolePersona, ai)
	if err != nil {
		return Observation{}, err
	}

	wu, wa := uo.Confidence, ao.Confidence
	if wu+wa == 0 {
		wu, wa = 1, 1
	}
	merged := NewVector()
	for _, l := range Labels {
		merged[l] = Clamp01((wu*uo.Vector[l] + wa*ao.Vector[l]) / (wu + wa))
	}
	return Observation{
		Role:       RolePersona,
		Vector:     merged,
		Confidence: Clamp01((uo.Confidence + ao.Confidence) / 2),
		Sentiment:  ClampSigned((wu*uo.Sentiment + wa*ao.Sentiment) / (wu + wa)),
	}, nil
}

func blendedObservation(role Role, te *TextEmotion) (Observation, error) {
	v, err := ParseVector(te.DetectedEmotions)
	if err != nil {
		return Observation{}, err
	}
	return Observation{
		Role:       role,
		Vector:     v,
		Confidence: Clamp01(te.Confidence),
		Sentiment:  ClampSigned(te.SentimentScore),
	}, nil
}

func authoritativeObservation(res TurnResult) (Observation, error) {
	cs := res.CurrentState
	v, err := ParseVector(cs.Emotions)
	if err != nil {
		return Observation{}, err
	}
	primary := Label(cs.PrimaryEmotion)
	if !KnownLabel(primary) {
		return Observation{}, &ValidationError{Field: "current_state.primary_emotion", Reason: "unknown emotion label " + cs.PrimaryEmotion}
	}

	obs := Observation{
		Role:   RolePersona,
		Vector: v.Clone(),
		Current: &AuthoritativeState{
			Primary:   primary,
			Intensity: Clamp01(cs.Intensity),
			Stability: Clamp01(cs.Stability),
			Vector:    v,
		},
	}
	if res.AIEmotion != nil {
		obs.Confidence = Clamp01(res.AIEmotion.Confidence)
		obs.Sentiment = ClampSigned(res.AIEmotion.SentimentScore)
	}
	return obs, nil
}
