package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTruncate marks a listener error as truncating: later sync
	// listeners of the same dispatch are skipped.
	ErrTruncate = errors.New("event processing truncated")

	// ErrSessionCancelled is matched by every SessionCancelledError.
	ErrSessionCancelled = errors.New("continuous session cancelled")

	// ErrManagerClosed is returned once the session manager has been shut down.
	ErrManagerClosed = errors.New("continuous session manager closed")

	// ErrInvalidEvent is returned by Push for a nil event or one without key.
	ErrInvalidEvent = errors.New("event is nil or has no key")

	// ErrProcessorClosed is returned by Push after the processor was closed.
	ErrProcessorClosed = errors.New("event processor closed")
)

// DuplicateIDError is returned when registering an id that is already present.
type DuplicateIDError struct {
	Kind string // "listener", "processing interceptor", ...
	ID   string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s id %q", e.Kind, e.ID)
}

// ListenerInvocationError wraps any failure of a listener body or its interceptor chain.
type ListenerInvocationError struct {
	ListenerID string
	Err        error
}

func (e *ListenerInvocationError) Error() string {
	return fmt.Sprintf("listener %q failed: %v", e.ListenerID, e.Err)
}

func (e *ListenerInvocationError) Unwrap() error {
	return e.Err
}

// InterceptorError wraps an error raised by an interceptor itself.
type InterceptorError struct {
	InterceptorID string
	Err           error
}

func (e *InterceptorError) Error() string {
	return fmt.Sprintf("interceptor %q failed: %v", e.InterceptorID, e.Err)
}

func (e *InterceptorError) Unwrap() error {
	return e.Err
}

// SessionTimeoutError is the cause of a session that expired while pending.
type SessionTimeoutError struct {
	SessionID string
	Timeout   time.Duration
}

func (e *SessionTimeoutError) Error() string {
	return fmt.Sprintf("continuous session %q timed out after %s", e.SessionID, e.Timeout)
}

// SessionReplacedError is the cause of a session displaced by a same-id registration.
type SessionReplacedError struct {
	SessionID string
}

func (e *SessionReplacedError) Error() string {
	return fmt.Sprintf("continuous session %q replaced by the same id", e.SessionID)
}

// SessionCancelledError is what a receiver resolves with when its session
// ends without a pushed value. Cause tells why.
type SessionCancelledError struct {
	SessionID string
	Cause     error
}

func (e *SessionCancelledError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("continuous session %q cancelled", e.SessionID)
	}
	return fmt.Sprintf("continuous session %q cancelled: %v", e.SessionID, e.Cause)
}

func (e *SessionCancelledError) Unwrap() error {
	return e.Cause
}

func (e *SessionCancelledError) Is(target error) bool {
	return target == ErrSessionCancelled
}
