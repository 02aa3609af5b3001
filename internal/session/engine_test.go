package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easeaico/emotion-engine/internal/emotion"
	"github.com/easeaico/emotion-engine/internal/storage"
)

// fakeStore is an in-memory storage.Store with switchable failure modes.
type fakeStore struct {
	mu       sync.Mutex
	records  map[string]storage.Record
	failSave bool
	failLoad bool
	saves    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]storage.Record)}
}

func (f *fakeStore) Load(_ context.Context, key string) (storage.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoad {
		return storage.Record{}, errors.New("disk on fire")
	}
	rec, ok := f.records[key]
	if !ok {
		return storage.Record{}, storage.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) Save(_ context.Context, key string, rec storage.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.failSave {
		return errors.New("disk full")
	}
	f.records[key] = rec
	return nil
}

func (f *fakeStore) record(key string) (storage.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[key]
	return rec, ok
}

func happyTurn(intensity float64) emotion.TurnResult {
	return emotion.TurnResult{
		Success: true,
		UserEmotion: &emotion.TextEmotion{
			Confidence:       0.9,
			SentimentScore:   0.8,
			DetectedEmotions: map[string]float64{string(emotion.Happy): intensity},
		},
	}
}

func newTestEngine(store storage.Store) *Engine {
	return NewEngine(Params{Store: store})
}

func TestAdvanceInitializesDefaultSession(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	state, err := engine.Advance(ctx, "alice", happyTurn(0.9))
	require.NoError(t, err)

	assert.Equal(t, "initial", state.RecentChange)
	assert.InDelta(t, 0.27, state.Vector[emotion.Happy], 1e-9)
}

func TestAdvanceClassifiesSubsequentTurns(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	_, err := engine.Advance(ctx, "alice", happyTurn(0.9))
	require.NoError(t, err)

	state, err := engine.Advance(ctx, "alice", happyTurn(0.9))
	require.NoError(t, err)
	assert.NotEqual(t, "initial", state.RecentChange)
}

func TestAdvanceAnalysisFailurePassesStateThrough(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	before, err := engine.Advance(ctx, "alice", happyTurn(0.9))
	require.NoError(t, err)
	trendBefore := engine.Trend(ctx, "alice", 0)

	after, err := engine.Advance(ctx, "alice", emotion.TurnResult{Success: false, Error: "model timeout"})
	var aerr *AnalysisError
	require.True(t, errors.As(err, &aerr))
	assert.Contains(t, aerr.Error(), "model timeout")

	assert.Equal(t, before, after)
	assert.Equal(t, trendBefore, engine.Trend(ctx, "alice", 0), "no history entry on analyzer failure")
}

func TestAdvanceValidationFailureLeavesStateUnchanged(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	before, err := engine.Advance(ctx, "alice", happyTurn(0.9))
	require.NoError(t, err)

	bad := emotion.TurnResult{
		Success: true,
		UserEmotion: &emotion.TextEmotion{
			DetectedEmotions: map[string]float64{"grumpy": 0.4},
		},
	}
	after, err := engine.Advance(ctx, "alice", bad)
	var verr *emotion.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, before, after)
}

func TestAdvanceWritesThrough(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	state, err := engine.Advance(ctx, "alice", happyTurn(0.9))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := store.record("alice")
		return ok
	}, time.Second, 5*time.Millisecond)

	rec, _ := store.record("alice")
	assert.Equal(t, string(state.Primary), rec.PrimaryEmotion)
	assert.Equal(t, state.RecentChange, rec.RecentChanges)
}

func TestAdvanceSaveFailureKeepsInMemoryState(t *testing.T) {
	store := newFakeStore()
	store.failSave = true
	engine := newTestEngine(store)
	ctx := context.Background()

	state, err := engine.Advance(ctx, "alice", happyTurn(0.9))
	require.NoError(t, err, "a failed save must not fail the turn")
	assert.InDelta(t, 0.27, state.Vector[emotion.Happy], 1e-9)

	select {
	case perr := <-engine.Errors():
		assert.Equal(t, "alice", perr.SessionKey)
		assert.ErrorContains(t, perr, "disk full")
	case <-time.After(time.Second):
		t.Fatal("expected a persistence error on the channel")
	}

	// the session keeps serving the un-persisted state
	assert.InDelta(t, 0.27, engine.Current(ctx, "alice").Vector[emotion.Happy], 1e-9)
}

func TestLoadFailureFallsBackToDefault(t *testing.T) {
	store := newFakeStore()
	store.failLoad = true
	engine := newTestEngine(store)

	state := engine.Current(context.Background(), "alice")
	assert.Equal(t, emotion.Neutral, state.Primary)
	assert.InDelta(t, emotion.DefaultIntensity, state.Intensity, 1e-9)
	assert.InDelta(t, emotion.DefaultStability, state.Stability, 1e-9)
}

func TestLoadedSessionIsNotInitial(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	prior := emotion.DefaultState(time.Now().UTC())
	prior.Vector[emotion.Calm] = 0.8
	prior.Primary = emotion.Calm
	prior.Intensity = 0.8
	require.NoError(t, store.Save(ctx, "alice", storage.FromState(prior)))

	engine := newTestEngine(store)
	state, err := engine.Advance(ctx, "alice", happyTurn(0.9))
	require.NoError(t, err)
	assert.NotEqual(t, "initial", state.RecentChange)
}

func TestMalformedRecordFallsBackToDefault(t *testing.T) {
	store := newFakeStore()
	store.records["alice"] = storage.Record{PrimaryEmotion: "wistful", Timestamp: "yesterday"}

	engine := newTestEngine(store)
	state := engine.Current(context.Background(), "alice")
	assert.Equal(t, emotion.Neutral, state.Primary)
}

func TestHistoryCapacityAcrossTurns(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := engine.Advance(ctx, "alice", happyTurn(0.9))
		require.NoError(t, err)
	}
	assert.Len(t, engine.Trend(ctx, "alice", 0), emotion.HistoryCapacity)
}

func TestSessionsAreIsolated(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("user-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, err := engine.Advance(ctx, key, happyTurn(0.9))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("user-%d", i)
		assert.Len(t, engine.Trend(ctx, key, 0), 5, key)
	}
}

func TestSerializedTurnsForOneSession(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Advance(ctx, "alice", happyTurn(0.9))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// every turn landed exactly once
	assert.Len(t, engine.Trend(ctx, "alice", 0), emotion.HistoryCapacity)
}

func TestResetPinsEmotionAndPersists(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	_, err := engine.Advance(ctx, "alice", happyTurn(0.9))
	require.NoError(t, err)

	state, err := engine.Reset(ctx, "alice", emotion.Calm, 0)
	require.NoError(t, err)
	assert.Equal(t, emotion.Calm, state.Primary)
	assert.InDelta(t, 0.8, state.Intensity, 1e-9)
	assert.InDelta(t, 0.1, state.Vector[emotion.Happy], 1e-9)
	assert.Contains(t, state.RecentChange, "transition:")

	require.Eventually(t, func() bool {
		rec, ok := store.record("alice")
		return ok && rec.PrimaryEmotion == string(emotion.Calm)
	}, time.Second, 5*time.Millisecond)
}

func TestResetRejectsUnknownLabel(t *testing.T) {
	engine := newTestEngine(newFakeStore())
	_, err := engine.Reset(context.Background(), "alice", emotion.Label("grumpy"), 0)
	var verr *emotion.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestSaveNowWritesSynchronously(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	_ = engine.Current(ctx, "alice")
	require.NoError(t, engine.SaveNow(ctx, "alice"))

	rec, ok := store.record("alice")
	require.True(t, ok)
	assert.Equal(t, string(emotion.Neutral), rec.PrimaryEmotion)
}

func TestStatisticsAggregatesHistory(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := engine.Advance(ctx, "alice", happyTurn(0.9))
		require.NoError(t, err)
	}

	stats := engine.Statistics(ctx, "alice")
	assert.Equal(t, 3, stats.TotalTransitions)
}

func TestDecayOpPersistsRelaxedState(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	prior := emotion.DefaultState(time.Now().UTC().Add(-2 * time.Hour))
	prior.Vector[emotion.Angry] = 0.9
	prior.Primary = emotion.Angry
	prior.Intensity = 0.9
	require.NoError(t, store.Save(ctx, "alice", storage.FromState(prior)))

	engine := newTestEngine(store)
	state := engine.Decay(ctx, "alice")
	assert.Less(t, state.Vector[emotion.Angry], 0.9)
	assert.Greater(t, state.Intensity, emotion.DefaultIntensity-1e-9)
}
