package emotion

import "time"

// HistoryCapacity bounds the per-session trend buffer.
const HistoryCapacity = 10

// HistoryEntry is a lightweight snapshot kept for trend display; the full
// vector is deliberately not retained.
type HistoryEntry struct {
	Primary   Label     `json:"primary_emotion"`
	Intensity float64   `json:"intensity"`
	Timestamp time.Time `json:"timestamp"`
}

// History is a fixed-capacity FIFO of recent states. It is not safe for
// concurrent use; the owning session serializes access.
type History struct {
	entries []HistoryEntry
	limit   int
}

// NewHistory returns a history bounded to capacity entries. A capacity of
// zero or less selects HistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = HistoryCapacity
	}
	return &History{
		entries: make([]HistoryEntry, 0, capacity),
		limit:   capacity,
	}
}

// Record appends the state's snapshot, evicting the oldest entry once the
// buffer exceeds capacity.
func (h *History) Record(s State) {
	h.entries = append(h.entries, s.Snapshot())
	if len(h.entries) > h.limit {
		h.entries = h.entries[1:]
	}
}

// Trend returns the most recent n entries in oldest-first order. A value of
// n that is zero, negative, or larger than the buffer returns everything.
func (h *History) Trend(n int) []HistoryEntry {
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]HistoryEntry, n)
	copy(out, h.entries[len(h.entries)-n:])
	return out
}

// Len reports the number of retained entries.
func (h *History) Len() int {
	return len(h.entries)
}
