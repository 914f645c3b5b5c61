package ports

import (
	"SimBot/internal/core/domain"
	"context"
)

// ProcessingNext proceeds to the next processing interceptor or the dispatch itself.
type ProcessingNext func(ctx context.Context) (*domain.ProcessingResult, error)

// ProcessingInterceptor wraps the whole dispatch of one event.
// An error it returns is fatal to the dispatch.
type ProcessingInterceptor interface {
	ID() string
	Priority() int
	Intercept(ctx context.Context, pctx *domain.ProcessingContext, next ProcessingNext) (*domain.ProcessingResult, error)
}

// ListenerInvocation is what a ListenerInterceptor intercepts.
type ListenerInvocation struct {
	Listener EventListener
	Context  *domain.ProcessingContext
}

// ListenerNext proceeds to the next listener interceptor or the listener itself.
type ListenerNext func(ctx context.Context) (domain.EventResult, error)

// ListenerInterceptor wraps each individual listener invocation.
// For async listeners it runs inside the listener's own goroutine.
type ListenerInterceptor interface {
	ID() string
	Priority() int
	Intercept(ctx context.Context, inv ListenerInvocation, next ListenerNext) (domain.EventResult, error)
}
