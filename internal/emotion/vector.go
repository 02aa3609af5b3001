// Package emotion implements the persona emotional state model: the closed
// emotion vector, observation fusion, stability scoring, change
// classification and the bounded trend history. Everything in this package
// is pure in-memory computation; persistence lives in internal/storage.
package emotion

import "fmt"

// Label is one emotion dimension in the closed label set.
type Label string

const (
	Angry    Label = "angry"
	Calm     Label = "calm"
	Confused Label = "confused"
	Disgust  Label = "disgust"
	Excited  Label = "excited"
	Fear     Label = "fear"
	Happy    Label = "happy"
	Neutral  Label = "neutral"
	Sad      Label = "sad"
	Surprise Label = "surprise"
)

// Labels lists every known label in lexicographic order. Dominant-emotion
// selection iterates this slice so ties resolve deterministically.
var Labels = []Label{
	Angry, Calm, Confused, Disgust, Excited,
	Fear, Happy, Neutral, Sad, Surprise,
}

// KnownLabel reports whether l belongs to the closed set.
func KnownLabel(l Label) bool {
	switch l {
	case Angry, Calm, Confused, Disgust, Excited,
		Fear, Happy, Neutral, Sad, Surprise:
		return true
	default:
		return false
	}
}

// Vector maps every label in the closed set to an intensity in [0,1].
// Values are independent intensities, not a probability distribution.
type Vector map[Label]float64

// NewVector returns a vector with every known label present at zero.
func NewVector() Vector {
	v := make(Vector, len(Labels))
	for _, l := range Labels {
		v[l] = 0
	}
	return v
}

// Clone returns an independent copy of v with absent labels filled to zero.
func (v Vector) Clone() Vector {
	out := NewVector()
	for l, val := range v {
		out[l] = Clamp01(val)
	}
	return out
}

// ParseVector validates raw analyzer output. Unknown labels are rejected,
// values are clamped into [0,1] and absent labels default to zero.
func ParseVector(raw map[string]float64) (Vector, error) {
	v := NewVector()
	for name, val := range raw {
		l := Label(name)
		if !KnownLabel(l) {
			return nil, &ValidationError{Field: "detected_emotions", Reason: fmt.Sprintf("unknown emotion label %q", name)}
		}
		v[l] = Clamp01(val)
	}
	return v, nil
}

// validate rejects vectors carrying labels outside the closed set and
// clamps every value into [0,1]. Returns a normalized copy.
func (v Vector) validate(field string) (Vector, error) {
	for l := range v {
		if !KnownLabel(l) {
			return nil, &ValidationError{Field: field, Reason: fmt.Sprintf("unknown emotion label %q", string(l))}
		}
	}
	return v.Clone(), nil
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ClampSigned bounds v to [-1,1].
func ClampSigned(v float64) float64 {
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	default:
		return v
	}
}

// dominant returns the label with the highest value. On an exact tie the
// anchor wins when it is among the tied labels; otherwise the
// lexicographically first tied label is chosen.
func dominant(v Vector, anchor Label) Label {
	best := -1.0
	var ties []Label
	for _, l := range Labels {
		val := v[l]
		switch {
		case val > best:
			best = val
			ties = ties[:0]
			ties = append(ties, l)
		case val == best:
			ties = append(ties, l)
		}
	}
	for _, l := range ties {
		if l == anchor {
			return anchor
		}
	}
	return ties[0]
}
