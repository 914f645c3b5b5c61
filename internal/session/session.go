package session

import (
	"SimBot/internal/core/domain"
	"context"
	"sync"
	"time"
)

// State is the lifecycle state of a continuous session.
type State int

const (
	StatePending State = iota
	StateCompleted
	StateCancelled
	StateTimedOut
	StateReplaced
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateTimedOut:
		return "timed_out"
	case StateReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// Matcher inspects every event pushed while its session is pending. It
// resolves the session through p; returning without pushing keeps it pending.
type Matcher func(ctx context.Context, pctx *domain.ProcessingContext, p *Provider) error

// ForKey restricts m to events whose key descends from key.
func ForKey(key *domain.Key, m Matcher) Matcher {
	return func(ctx context.Context, pctx *domain.ProcessingContext, p *Provider) error {
		if !pctx.Event().Key().IsSubFrom(key) {
			return nil
		}
		return m(ctx, pctx, p)
	}
}

type session struct {
	id        string
	matcher   Matcher
	manager   *Manager
	createdAt time.Time
	timeout   time.Duration

	mu          sync.Mutex
	state       State
	value       any
	err         error
	timer       *time.Timer
	onCompleted []func(State)
	done        chan struct{}
}

func newSession(m *Manager, id string, timeout time.Duration, matcher Matcher) *session {
	return &session{
		id:        id,
		matcher:   matcher,
		manager:   m,
		createdAt: time.Now(),
		timeout:   timeout,
		done:      make(chan struct{}),
	}
}

// resolve moves a pending session to a terminal state and runs its
// completion handlers. It reports false if the session already left Pending.
func (s *session) resolve(state State, v any, err error) bool {
	handlers, ok := s.transition(state, v, err)
	if !ok {
		return false
	}
	for _, h := range handlers {
		h(state)
	}
	return true
}

// transition performs the state change and hands back the completion
// handlers for the caller to run outside of any lock it holds.
func (s *session) transition(state State, v any, err error) ([]func(State), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePending {
		return nil, false
	}
	s.state = state
	s.value = v
	s.err = err
	if s.timer != nil {
		s.timer.Stop()
	}
	handlers := s.onCompleted
	s.onCompleted = nil
	close(s.done)
	return handlers, true
}

func (s *session) currentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) cancelledWith(cause error) error {
	return &domain.SessionCancelledError{SessionID: s.id, Cause: cause}
}

// Provider is the write side of a session.
type Provider struct {
	s *session
}

// ID returns the session id.
func (p *Provider) ID() string { return p.s.id }

// Push completes the session with v. It reports false if the session was
// no longer pending.
func (p *Provider) Push(v any) bool {
	return p.s.manager.finish(p.s, StateCompleted, v, nil)
}

// PushError completes the session with err.
func (p *Provider) PushError(err error) bool {
	return p.s.manager.finish(p.s, StateCompleted, nil, err)
}

// Cancel cancels the session; its receiver resolves with a
// *domain.SessionCancelledError carrying cause.
func (p *Provider) Cancel(cause error) bool {
	return p.s.manager.finish(p.s, StateCancelled, nil, p.s.cancelledWith(cause))
}

// IsCompleted reports whether the session reached any terminal state.
func (p *Provider) IsCompleted() bool {
	return p.s.currentState() != StatePending
}

// State returns the current lifecycle state.
func (p *Provider) State() State {
	return p.s.currentState()
}

// OnCompletion registers fn to run once the session is terminal. If it
// already is, fn runs immediately.
func (p *Provider) OnCompletion(fn func(State)) {
	s := p.s
	s.mu.Lock()
	if s.state == StatePending {
		s.onCompleted = append(s.onCompleted, fn)
		s.mu.Unlock()
		return
	}
	state := s.state
	s.mu.Unlock()
	fn(state)
}

// Receiver is the read side of a session.
type Receiver struct {
	s *session
}

// ID returns the session id.
func (r *Receiver) ID() string { return r.s.id }

// Done is closed when the session reaches a terminal state.
func (r *Receiver) Done() <-chan struct{} { return r.s.done }

// State returns the current lifecycle state.
func (r *Receiver) State() State {
	return r.s.currentState()
}

// Deadline returns when the session times out, if it has a timeout.
func (r *Receiver) Deadline() (time.Time, bool) {
	if r.s.timeout <= 0 {
		return time.Time{}, false
	}
	return r.s.createdAt.Add(r.s.timeout), true
}

// Await blocks until the session resolves or ctx ends. Ending ctx does not
// cancel the session; use Cancel for that.
func (r *Receiver) Await(ctx context.Context) (any, error) {
	select {
	case <-r.s.done:
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		return r.s.value, r.s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until the session resolves. If ctx ends first the session is
// cancelled with ctx's error and the cancellation error is returned.
func (r *Receiver) Wait(ctx context.Context) (any, error) {
	select {
	case <-r.s.done:
	case <-ctx.Done():
		r.Cancel(ctx.Err())
	}
	return r.Await(context.Background())
}

// Cancel cancels the session and resolves waiting callers with a
// cancellation error.
func (r *Receiver) Cancel(cause error) {
	r.s.manager.finish(r.s, StateCancelled, nil, r.s.cancelledWith(cause))
}

// TryCancel cancels the session if it is still pending.
func (r *Receiver) TryCancel(cause error) bool {
	return r.s.manager.finish(r.s, StateCancelled, nil, r.s.cancelledWith(cause))
}
