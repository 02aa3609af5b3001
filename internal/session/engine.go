// Package session owns the per-persona emotion sessions: one canonical
// state and one trend buffer per session key, serialized per key, with
// write-through persistence decoupled from the in-memory update.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/easeaico/emotion-engine/internal/emotion"
	"github.com/easeaico/emotion-engine/internal/storage"
)

const (
	defaultSaveTimeout = 5 * time.Second
	errorBuffer        = 16
)

// Params configures an Engine. Store is required; zero values elsewhere
// select defaults.
type Params struct {
	Store       storage.Store
	Options     emotion.Options
	HistoryCap  int
	SaveTimeout time.Duration
	Logger      *slog.Logger
}

// Engine is the session registry. Turns for the same session key are
// mutually exclusive; turns for different keys proceed in parallel. Only
// the persistence calls touch I/O, and a slow or failed save never blocks
// or rolls back the in-memory state.
type Engine struct {
	store       storage.Store
	opts        emotion.Options
	historyCap  int
	saveTimeout time.Duration
	logger      *slog.Logger
	errs        chan PersistError

	mu       sync.Mutex
	sessions map[string]*personaSession
}

// personaSession is the unit of isolation: one state plus one history
// buffer. mu serializes turns; persistMu orders background saves so an
// older snapshot can never overwrite a newer one.
type personaSession struct {
	mu        sync.Mutex
	persistMu sync.Mutex

	loaded  bool
	fused   bool // a real observation has been applied
	state   emotion.State
	history *emotion.History
}

// NewEngine returns an engine over the given store.
func NewEngine(p Params) *Engine {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	saveTimeout := p.SaveTimeout
	if saveTimeout <= 0 {
		saveTimeout = defaultSaveTimeout
	}
	return &Engine{
		store:       p.Store,
		opts:        p.Options,
		historyCap:  p.HistoryCap,
		saveTimeout: saveTimeout,
		logger:      logger,
		errs:        make(chan PersistError, errorBuffer),
		sessions:    make(map[string]*personaSession),
	}
}

// Errors exposes asynchronous persistence failures. The channel is buffered
// and never blocks a turn; unread errors beyond the buffer are dropped
// after being logged.
func (e *Engine) Errors() <-chan PersistError {
	return e.errs
}

// Advance ingests one analyzer turn for the session: fuse, classify, record
// history, then persist write-through. On an analyzer failure or a rejected
// observation the previous state is returned unchanged and no history entry
// is appended.
func (e *Engine) Advance(ctx context.Context, sessionKey string, turn emotion.TurnResult) (emotion.State, error) {
	s := e.session(sessionKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ensureLoaded(ctx, sessionKey, s)

	if !turn.Success {
		e.logger.Warn("emotion analysis failed, state unchanged",
			slog.String("session", sessionKey), slog.String("error", turn.Error))
		return s.state.Clone(), &AnalysisError{Message: turn.Error}
	}

	obs, err := emotion.ObservationFromTurn(turn)
	if err != nil {
		return s.state.Clone(), err
	}

	next, err := emotion.Fuse(s.state, obs, e.opts)
	if err != nil {
		return s.state.Clone(), err
	}

	var prev *emotion.State
	if s.fused {
		prevState := s.state
		prev = &prevState
	}
	next.RecentChange = emotion.Classify(prev, next)

	s.state = next
	s.fused = true
	s.history.Record(next)
	e.persist(sessionKey, s)

	if turn.Statistics != nil {
		e.logger.Debug("analyzer statistics",
			slog.String("session", sessionKey), slog.Any("statistics", turn.Statistics))
	}
	e.logger.Debug("emotion state advanced",
		slog.String("session", sessionKey),
		slog.String("primary", string(next.Primary)),
		slog.Float64("intensity", next.Intensity),
		slog.String("change", next.RecentChange))

	return next.Clone(), nil
}

// Current returns the session's state, loading it from storage or
// initializing the default on first use.
func (e *Engine) Current(ctx context.Context, sessionKey string) emotion.State {
	s := e.session(sessionKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ensureLoaded(ctx, sessionKey, s)
	return s.state.Clone()
}

// Trend returns the session's last n history entries, oldest first.
func (e *Engine) Trend(ctx context.Context, sessionKey string, n int) []emotion.HistoryEntry {
	s := e.session(sessionKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ensureLoaded(ctx, sessionKey, s)
	return s.history.Trend(n)
}

// Statistics aggregates the session's trend buffer.
func (e *Engine) Statistics(ctx context.Context, sessionKey string) emotion.Statistics {
	s := e.session(sessionKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ensureLoaded(ctx, sessionKey, s)
	return emotion.Summarize(s.history.Trend(0))
}

// Reset pins the session to the given emotion and persists immediately. An
// intensity of zero or less selects the conventional reset level.
func (e *Engine) Reset(ctx context.Context, sessionKey string, label emotion.Label, intensity float64) (emotion.State, error) {
	if !emotion.KnownLabel(label) {
		return emotion.State{}, &emotion.ValidationError{Field: "label", Reason: "unknown emotion label " + string(label)}
	}

	s := e.session(sessionKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ensureLoaded(ctx, sessionKey, s)

	next := emotion.ResetState(label, intensity, time.Now().UTC())
	if s.fused {
		prevState := s.state
		next.RecentChange = emotion.Classify(&prevState, next)
	}
	s.state = next
	s.fused = true
	e.persist(sessionKey, s)

	e.logger.Info("emotion state reset",
		slog.String("session", sessionKey), slog.String("primary", string(label)))
	return next.Clone(), nil
}

// Decay relaxes the session toward the neutral baseline in proportion to
// the time elapsed since its last update, then persists the result. It is
// only applied when explicitly invoked.
func (e *Engine) Decay(ctx context.Context, sessionKey string) emotion.State {
	s := e.session(sessionKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ensureLoaded(ctx, sessionKey, s)

	now := time.Now().UTC()
	next := emotion.Decay(s.state, now.Sub(s.state.Timestamp))
	next.Timestamp = now
	s.state = next
	e.persist(sessionKey, s)
	return next.Clone()
}

// SaveNow persists the session's current state synchronously. The replay
// CLI calls it before exit so no in-flight save is lost.
func (e *Engine) SaveNow(ctx context.Context, sessionKey string) error {
	s := e.session(sessionKey)
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	e.ensureLoaded(ctx, sessionKey, s)
	rec := storage.FromState(s.state)
	s.mu.Unlock()

	if err := e.store.Save(ctx, sessionKey, rec); err != nil {
		return PersistError{SessionKey: sessionKey, Err: err}
	}
	return nil
}

// session returns the registry entry for key, creating it on first use.
// Creation only allocates; the storage load happens lazily under the
// session's own lock so slow I/O for one key never stalls the registry.
func (e *Engine) session(key string) *personaSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[key]
	if !ok {
		s = &personaSession{}
		e.sessions[key] = s
	}
	return s
}

// ensureLoaded populates the session from storage once. A missing or
// malformed record is logged and treated as "no prior state".
func (e *Engine) ensureLoaded(ctx context.Context, key string, s *personaSession) {
	if s.loaded {
		return
	}
	s.loaded = true
	s.history = emotion.NewHistory(e.historyCap)
	s.state = emotion.DefaultState(time.Now().UTC())

	rec, err := e.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.logger.Warn("failed to load emotion state, using default",
				slog.String("session", key), slog.Any("error", err))
		}
		return
	}
	st, err := rec.ToState()
	if err != nil {
		e.logger.Warn("malformed emotion state record, using default",
			slog.String("session", key), slog.Any("error", err))
		return
	}
	s.state = st
	s.fused = true
}

// persist schedules a write-through save of the session's newest state. The
// caller keeps the in-memory state regardless of the save's outcome; a
// failure is logged and surfaced on the error channel.
func (e *Engine) persist(key string, s *personaSession) {
	go func() {
		s.persistMu.Lock()
		defer s.persistMu.Unlock()

		s.mu.Lock()
		rec := storage.FromState(s.state)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), e.saveTimeout)
		defer cancel()
		if err := e.store.Save(ctx, key, rec); err != nil {
			e.logger.Error("failed to save emotion state",
				slog.String("session", key), slog.Any("error", err))
			select {
			case e.errs <- PersistError{SessionKey: key, Err: err}:
			default:
			}
		}
	}()
}
