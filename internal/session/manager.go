package session

import (
	"SimBot/internal/core/domain"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Manager holds the pending continuous sessions, at most one per id.
type Manager struct {
	log zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
}

// NewManager creates an empty session manager.
func NewManager(baseLogger *zerolog.Logger) *Manager {
	return &Manager{
		log:      baseLogger.With().Str("component", "session_manager").Logger(),
		sessions: make(map[string]*session),
	}
}

// Waiting registers a session and returns its receiver immediately.
// A pending session with the same id is cancelled as replaced before the
// new one becomes visible. timeout <= 0 waits forever.
func (m *Manager) Waiting(id string, timeout time.Duration, matcher Matcher) (*Receiver, error) {
	if matcher == nil {
		return nil, fmt.Errorf("session %q: matcher is required", id)
	}
	s := newSession(m, id, timeout, matcher)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, domain.ErrManagerClosed
	}
	var replacedHandlers []func(State)
	if old, ok := m.sessions[id]; ok {
		// Resolved in place: the entry is overwritten below under the same lock.
		replacedHandlers, _ = old.transition(StateReplaced, nil, old.cancelledWith(&domain.SessionReplacedError{SessionID: id}))
		m.log.Info().Str("session_id", id).Msg("Replaced pending session")
	}
	if timeout > 0 {
		s.mu.Lock()
		s.timer = time.AfterFunc(timeout, func() {
			if m.finish(s, StateTimedOut, nil, s.cancelledWith(&domain.SessionTimeoutError{SessionID: id, Timeout: timeout})) {
				m.log.Info().Str("session_id", id).Dur("timeout", timeout).Msg("Session timed out")
			}
		})
		s.mu.Unlock()
	}
	m.sessions[id] = s
	m.mu.Unlock()

	for _, h := range replacedHandlers {
		h(StateReplaced)
	}

	m.log.Debug().Str("session_id", id).Dur("timeout", timeout).Msg("Session registered")
	return &Receiver{s: s}, nil
}

// WaitingFor registers a session and blocks until it resolves. If ctx ends
// first the session is cancelled and the cancellation error returned.
func (m *Manager) WaitingFor(ctx context.Context, id string, timeout time.Duration, matcher Matcher) (any, error) {
	r, err := m.Waiting(id, timeout, matcher)
	if err != nil {
		return nil, err
	}
	return r.Wait(ctx)
}

// WaitFor is WaitingFor with the pushed value asserted to T.
func WaitFor[T any](ctx context.Context, m *Manager, id string, timeout time.Duration, matcher Matcher) (T, error) {
	r, err := m.Waiting(id, timeout, matcher)
	if err != nil {
		var zero T
		return zero, err
	}
	return ReceiveAs[T](ctx, r)
}

// ReceiveAs waits on r like Receiver.Wait and asserts the pushed value to T.
func ReceiveAs[T any](ctx context.Context, r *Receiver) (T, error) {
	var zero T
	v, err := r.Wait(ctx)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("session %q: pushed value of type %T, want %T", r.ID(), v, zero)
	}
	return t, nil
}

// Provider returns the provider of the pending session id.
func (m *Manager) Provider(id string) (*Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return &Provider{s: s}, true
}

// Receiver returns the receiver of the pending session id.
func (m *Manager) Receiver(id string) (*Receiver, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return &Receiver{s: s}, true
}

// Len returns the number of pending sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Batch is the set of sessions that were pending at one instant.
type Batch struct {
	m        *Manager
	sessions []*session
}

// Pending snapshots the currently pending sessions. Sessions registered
// after the snapshot are not part of the batch.
func (m *Manager) Pending() Batch {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b := Batch{m: m, sessions: make([]*session, 0, len(m.sessions))}
	for _, s := range m.sessions {
		b.sessions = append(b.sessions, s)
	}
	return b
}

// Len returns the number of sessions in the batch.
func (b Batch) Len() int {
	return len(b.sessions)
}

// Process offers the event in pctx to every session of the batch
// concurrently and returns once all matchers ran. Matcher failures are
// logged and leave the session pending.
func (b Batch) Process(ctx context.Context, pctx *domain.ProcessingContext) {
	if len(b.sessions) == 0 {
		return
	}

	var wg conc.WaitGroup
	for _, s := range b.sessions {
		wg.Go(func() {
			b.m.match(ctx, s, pctx)
		})
	}
	wg.Wait()
}

// Process offers the event in pctx to every currently pending session.
func (m *Manager) Process(ctx context.Context, pctx *domain.ProcessingContext) {
	m.Pending().Process(ctx, pctx)
}

func (m *Manager) match(ctx context.Context, s *session, pctx *domain.ProcessingContext) {
	if s.currentState() != StatePending {
		return
	}
	log := m.log.With().Str("session_id", s.id).Str("event_id", pctx.Event().ID()).Logger()

	var err error
	var catcher panics.Catcher
	catcher.Try(func() {
		err = s.matcher(ctx, pctx, &Provider{s: s})
	})
	if r := catcher.Recovered(); r != nil {
		err = r.AsError()
	}
	if err != nil {
		log.Error().Err(err).Msg("Session matcher failed")
	}
}

// finish resolves s and drops it from the map if it is still the entry
// registered under its id. Both happen under the map lock so a lookup never
// returns a terminal session.
func (m *Manager) finish(s *session, state State, v any, err error) bool {
	m.mu.Lock()
	handlers, ok := s.transition(state, v, err)
	if !ok {
		m.mu.Unlock()
		return false
	}
	if cur, exists := m.sessions[s.id]; exists && cur == s {
		delete(m.sessions, s.id)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(state)
	}
	m.log.Debug().Str("session_id", s.id).Str("state", state.String()).Msg("Session finished")
	return true
}

// Close cancels every pending session and rejects new registrations.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	pending := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range pending {
		s.resolve(StateCancelled, nil, s.cancelledWith(domain.ErrManagerClosed))
	}
	m.log.Info().Int("cancelled", len(pending)).Msg("Session manager closed")
}
