package interceptor

import (
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"context"

	"github.com/rs/zerolog"
)

// ListenerChain wraps every individual listener invocation.
type ListenerChain struct {
	log   zerolog.Logger
	chain *Chain[ports.ListenerInvocation, domain.EventResult]
}

// NewListenerChain creates an empty listener-level chain.
func NewListenerChain(baseLogger *zerolog.Logger) *ListenerChain {
	return &ListenerChain{
		log:   baseLogger.With().Str("component", "listener_chain").Logger(),
		chain: NewChain[ports.ListenerInvocation, domain.EventResult]("listener interceptor"),
	}
}

// Register adds an interceptor to the chain.
func (c *ListenerChain) Register(i ports.ListenerInterceptor) error {
	err := c.chain.Add(i.ID(), i.Priority(), func(ctx context.Context, inv ports.ListenerInvocation, next Next[domain.EventResult]) (domain.EventResult, error) {
		return i.Intercept(ctx, inv, ports.ListenerNext(next))
	})
	if err != nil {
		return err
	}
	c.log.Info().Str("interceptor_id", i.ID()).Int("priority", i.Priority()).Msg("Registered listener interceptor")
	return nil
}

// Unregister removes the interceptor with id.
func (c *ListenerChain) Unregister(id string) bool {
	return c.chain.Remove(id)
}

// Len returns the number of registered interceptors.
func (c *ListenerChain) Len() int {
	return c.chain.Len()
}

// Execute runs the listener of inv inside the chain.
func (c *ListenerChain) Execute(ctx context.Context, inv ports.ListenerInvocation) (domain.EventResult, error) {
	return c.chain.Execute(ctx, inv, func(ctx context.Context) (domain.EventResult, error) {
		return inv.Listener.Invoke(ctx, inv.Context)
	})
}

type listenerFunc struct {
	id       string
	priority int
	fn       func(ctx context.Context, inv ports.ListenerInvocation, next ports.ListenerNext) (domain.EventResult, error)
}

// NewListenerInterceptor adapts a function to ports.ListenerInterceptor.
func NewListenerInterceptor(
	id string,
	priority int,
	fn func(ctx context.Context, inv ports.ListenerInvocation, next ports.ListenerNext) (domain.EventResult, error),
) ports.ListenerInterceptor {
	return &listenerFunc{id: id, priority: priority, fn: fn}
}

func (l *listenerFunc) ID() string    { return l.id }
func (l *listenerFunc) Priority() int { return l.priority }

func (l *listenerFunc) Intercept(ctx context.Context, inv ports.ListenerInvocation, next ports.ListenerNext) (domain.EventResult, error) {
	return l.fn(ctx, inv, next)
}
