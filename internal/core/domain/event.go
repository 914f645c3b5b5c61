package domain

import (
	"time"

	"github.com/google/uuid"
)

// Visibility is the scope an event is visible in.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityInternal
	VisibilityPrivate
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityInternal:
		return "internal"
	case VisibilityPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// Event is an immutable occurrence pushed to the processor.
type Event interface {
	ID() string
	Key() *Key
	Visibility() Visibility
	Timestamp() time.Time
}

// TextEvent is implemented by events that carry plain text content.
type TextEvent interface {
	Event
	Text() string
}

// BaseEvent is the minimal Event implementation.
type BaseEvent struct {
	id         string
	key        *Key
	visibility Visibility
	timestamp  time.Time
}

// EventOption customizes a BaseEvent.
type EventOption func(*BaseEvent)

// WithEventID overrides the generated event id.
func WithEventID(id string) EventOption {
	return func(e *BaseEvent) {
		if id != "" {
			e.id = id
		}
	}
}

// WithVisibility sets the event visibility (public by default).
func WithVisibility(v Visibility) EventOption {
	return func(e *BaseEvent) {
		e.visibility = v
	}
}

// WithTimestamp sets the event time (now by default).
func WithTimestamp(t time.Time) EventOption {
	return func(e *BaseEvent) {
		if !t.IsZero() {
			e.timestamp = t
		}
	}
}

// NewEvent creates a BaseEvent for key.
func NewEvent(key *Key, opts ...EventOption) BaseEvent {
	e := BaseEvent{
		id:        uuid.NewString(),
		key:       key,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e BaseEvent) ID() string             { return e.id }
func (e BaseEvent) Key() *Key              { return e.key }
func (e BaseEvent) Visibility() Visibility { return e.visibility }
func (e BaseEvent) Timestamp() time.Time   { return e.timestamp }

// MessageEvent is a chat message received from some platform.
type MessageEvent struct {
	BaseEvent
	MessageID   int
	ChatID      int64
	UserID      int64
	Content     string
	Command     string
	CommandArgs string
}

// NewMessageEvent creates a message event. key should descend from MessageKey.
func NewMessageEvent(key *Key, chatID, userID int64, text string, opts ...EventOption) *MessageEvent {
	return &MessageEvent{
		BaseEvent: NewEvent(key, opts...),
		ChatID:    chatID,
		UserID:    userID,
		Content:   text,
	}
}

// Text implements TextEvent.
func (e *MessageEvent) Text() string {
	return e.Content
}

// IsCommand reports whether the message was a bot command.
func (e *MessageEvent) IsCommand() bool {
	return e.Command != ""
}

// CallbackEvent is a press on an inline keyboard button.
type CallbackEvent struct {
	BaseEvent
	CallbackQueryID string
	MessageID       int
	ChatID          int64
	UserID          int64
	Data            string
}

// NewCallbackEvent creates a callback event keyed by CallbackKey.
func NewCallbackEvent(queryID string, chatID, userID int64, data string, opts ...EventOption) *CallbackEvent {
	return &CallbackEvent{
		BaseEvent:       NewEvent(CallbackKey, opts...),
		CallbackQueryID: queryID,
		ChatID:          chatID,
		UserID:          userID,
		Data:            data,
	}
}

// Text implements TextEvent with the button payload.
func (e *CallbackEvent) Text() string {
	return e.Data
}
