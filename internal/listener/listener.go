package listener

import (
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"context"

	"github.com/google/uuid"
)

// HandlerFunc is the body of a listener built with New.
type HandlerFunc func(ctx context.Context, pctx *domain.ProcessingContext) (domain.EventResult, error)

// Filter decides whether a listener handles the event in pctx.
type Filter func(ctx context.Context, pctx *domain.ProcessingContext) bool

// Option configures a listener built with New.
type Option func(*funcListener)

// WithPriority sets the listener priority (lower runs earlier).
func WithPriority(p int) Option {
	return func(l *funcListener) {
		l.priority = p
	}
}

// WithAsync marks the listener as async.
func WithAsync() Option {
	return func(l *funcListener) {
		l.async = true
	}
}

// WithTargets restricts the listener to events whose key descends from one
// of keys. Without targets the listener accepts every event.
func WithTargets(keys ...*domain.Key) Option {
	return func(l *funcListener) {
		l.targets = append(l.targets, keys...)
	}
}

// WithAttribute attaches a named attribute to the listener.
func WithAttribute[T any](key domain.AttributeKey[T], v T) Option {
	return func(l *funcListener) {
		domain.SetAttribute(l.attrs, key, v)
	}
}

// WithFilter adds a filter; all filters must pass or the listener yields Empty.
func WithFilter(f Filter) Option {
	return func(l *funcListener) {
		l.filters = append(l.filters, f)
	}
}

type funcListener struct {
	id       string
	priority int
	async    bool
	targets  []*domain.Key
	filters  []Filter
	attrs    *domain.Attributes
	handler  HandlerFunc
}

// New builds a listener around handler. An empty id gets a generated one.
func New(id string, handler HandlerFunc, opts ...Option) ports.EventListener {
	if id == "" {
		id = uuid.NewString()
	}
	l := &funcListener{
		id:       id,
		priority: ports.PriorityLast,
		attrs:    domain.NewAttributes(),
		handler:  handler,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *funcListener) ID() string    { return l.id }
func (l *funcListener) Priority() int { return l.priority }
func (l *funcListener) IsAsync() bool { return l.async }

func (l *funcListener) Attribute(name string) (any, bool) {
	return l.attrs.Attribute(name)
}

func (l *funcListener) IsTarget(key *domain.Key) bool {
	if len(l.targets) == 0 {
		return key != nil
	}
	for _, t := range l.targets {
		if key.IsSubFrom(t) {
			return true
		}
	}
	return false
}

func (l *funcListener) Invoke(ctx context.Context, pctx *domain.ProcessingContext) (domain.EventResult, error) {
	for _, f := range l.filters {
		if !f(ctx, pctx) {
			return domain.Empty(), nil
		}
	}
	return l.handler(ctx, pctx)
}
