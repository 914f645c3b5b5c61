package ports

import (
	"SimBot/internal/core/domain"
	"context"
	"math"
)

const (
	// PriorityFirst runs before every other listener or interceptor.
	PriorityFirst = math.MinInt32
	// PriorityLast is the default: lower values run earlier.
	PriorityLast = math.MaxInt32
)

// EventListener is a registered handler of events.
type EventListener interface {
	domain.AttributeContainer

	// ID must be globally unique.
	ID() string

	// Priority orders listeners within one dispatch (lower runs earlier).
	// Async listeners are always launched before sync ones regardless of it.
	Priority() int

	// IsAsync makes the processor launch the listener concurrently.
	// Its result is an Async handle and can never truncate the dispatch.
	IsAsync() bool

	// IsTarget reports whether the listener handles events of key.
	IsTarget(key *domain.Key) bool

	// Invoke handles the event held by pctx.
	Invoke(ctx context.Context, pctx *domain.ProcessingContext) (domain.EventResult, error)
}

// EventProcessor is the dispatch entry point used by event sources.
type EventProcessor interface {
	Push(ctx context.Context, event domain.Event) (*domain.ProcessingResult, error)
}
