package emotion

import "fmt"

var emojiByLabel = map[Label][3]string{
	Happy:    {"🙂", "😊", "😄"},
	Sad:      {"😕", "😢", "😭"},
	Angry:    {"😠", "😡", "🤬"},
	Fear:     {"😟", "😨", "😱"},
	Surprise: {"😯", "😮", "😲"},
	Disgust:  {"😒", "🤢", "🤮"},
	Neutral:  {"😐", "🙂", "😌"},
	Excited:  {"😃", "🤩", "🎉"},
	Calm:     {"😌", "😇", "🧘"},
	Confused: {"😕", "😵", "🤯"},
}

// Emoji returns a glyph for the label, scaled by intensity.
func Emoji(l Label, intensity float64) string {
	set, ok := emojiByLabel[l]
	if !ok {
		return emojiByLabel[Neutral][0]
	}
	switch {
	case intensity < 0.3:
		return set[0]
	case intensity < 0.7:
		return set[1]
	default:
		return set[2]
	}
}

// Describe returns a short human-readable summary of the state for the
// debug surface.
func Describe(s State) string {
	level := "mild"
	switch {
	case s.Intensity >= 0.7:
		level = "strong"
	case s.Intensity >= 0.3:
		level = "moderate"
	}
	return fmt.Sprintf("%s %s (%.2f)", level, s.Primary, s.Intensity)
}

// MoodInstruction returns a short behavior guideline the chat composer can
// fold into its prompt for the current state.
func MoodInstruction(s State) string {
	switch s.Primary {
	case Happy, Excited:
		return "Keep the tone warm and upbeat; a little playfulness is welcome."
	case Sad:
		return "Keep the tone soft and subdued; acknowledge feelings before anything else."
	case Angry, Disgust:
		return "Keep replies short and cool; avoid terms of endearment."
	case Fear, Confused:
		return "Be reassuring and concrete; avoid ambiguity."
	case Surprise:
		return "React with curiosity; ask a follow-up question."
	case Calm:
		return "Keep the pace unhurried and the wording gentle."
	default:
		return ""
	}
}
