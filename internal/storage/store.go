// Package storage persists one emotion-state record per persona session
// key. Backends share the Store contract: the file store writes atomically
// via rename, the Redis store relies on single-key SET atomicity, and the
// PostgreSQL backend in internal/repository upserts inside a statement.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/easeaico/emotion-engine/internal/emotion"
)

// ErrNotFound reports that a session has no durable record yet. Callers
// treat it as "no prior state" and fall back to the default neutral state.
var ErrNotFound = errors.New("emotion state not found")

// Store persists one Record per session key. Save must be atomic with
// respect to partial writes: a crash mid-save never corrupts the previous
// valid snapshot.
type Store interface {
	Load(ctx context.Context, sessionKey string) (Record, error)
	Save(ctx context.Context, sessionKey string, rec Record) error
}

// Record is the durable snapshot of a session's emotion state. The schema
// round-trips exactly: loading a just-saved record and re-saving it without
// further fusion produces identical content.
type Record struct {
	PrimaryEmotion string             `json:"primary_emotion"`
	Intensity      float64            `json:"intensity"`
	Stability      float64            `json:"stability"`
	Emotions       map[string]float64 `json:"emotions"`
	RecentChanges  string             `json:"recent_changes"`
	Timestamp      string             `json:"timestamp"`
}

// FromState converts a canonical state into its persisted form.
func FromState(s emotion.State) Record {
	emotions := make(map[string]float64, len(emotion.Labels))
	for _, l := range emotion.Labels {
		emotions[string(l)] = s.Vector[l]
	}
	return Record{
		PrimaryEmotion: string(s.Primary),
		Intensity:      s.Intensity,
		Stability:      s.Stability,
		Emotions:       emotions,
		RecentChanges:  s.RecentChange,
		Timestamp:      s.Timestamp.Format(time.RFC3339Nano),
	}
}

// ToState parses a loaded record back into a canonical state. A record
// carrying an unknown label or an unparseable timestamp is malformed.
func (r Record) ToState() (emotion.State, error) {
	primary := emotion.Label(r.PrimaryEmotion)
	if !emotion.KnownLabel(primary) {
		return emotion.State{}, fmt.Errorf("malformed record: unknown primary emotion %q", r.PrimaryEmotion)
	}
	vec, err := emotion.ParseVector(r.Emotions)
	if err != nil {
		return emotion.State{}, fmt.Errorf("malformed record: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return emotion.State{}, fmt.Errorf("malformed record: bad timestamp: %w", err)
	}
	return emotion.State{
		Primary:      primary,
		Intensity:    emotion.Clamp01(r.Intensity),
		Stability:    emotion.Clamp01(r.Stability),
		Vector:       vec,
		RecentChange: r.RecentChanges,
		Timestamp:    ts,
	}, nil
}
