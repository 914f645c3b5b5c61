package interceptor

import (
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"context"

	"github.com/rs/zerolog"
)

// ProcessingChain wraps the whole dispatch of an event.
type ProcessingChain struct {
	log   zerolog.Logger
	chain *Chain[*domain.ProcessingContext, *domain.ProcessingResult]
}

// NewProcessingChain creates an empty processing-level chain.
func NewProcessingChain(baseLogger *zerolog.Logger) *ProcessingChain {
	return &ProcessingChain{
		log:   baseLogger.With().Str("component", "processing_chain").Logger(),
		chain: NewChain[*domain.ProcessingContext, *domain.ProcessingResult]("processing interceptor"),
	}
}

// Register adds an interceptor to the chain.
func (c *ProcessingChain) Register(i ports.ProcessingInterceptor) error {
	err := c.chain.Add(i.ID(), i.Priority(), func(ctx context.Context, pctx *domain.ProcessingContext, next Next[*domain.ProcessingResult]) (*domain.ProcessingResult, error) {
		return i.Intercept(ctx, pctx, ports.ProcessingNext(next))
	})
	if err != nil {
		return err
	}
	c.log.Info().Str("interceptor_id", i.ID()).Int("priority", i.Priority()).Msg("Registered processing interceptor")
	return nil
}

// Unregister removes the interceptor with id.
func (c *ProcessingChain) Unregister(id string) bool {
	return c.chain.Remove(id)
}

// Len returns the number of registered interceptors.
func (c *ProcessingChain) Len() int {
	return c.chain.Len()
}

// Execute runs dispatch inside the chain.
func (c *ProcessingChain) Execute(ctx context.Context, pctx *domain.ProcessingContext, dispatch ports.ProcessingNext) (*domain.ProcessingResult, error) {
	return c.chain.Execute(ctx, pctx, Next[*domain.ProcessingResult](dispatch))
}

type processingFunc struct {
	id       string
	priority int
	fn       func(ctx context.Context, pctx *domain.ProcessingContext, next ports.ProcessingNext) (*domain.ProcessingResult, error)
}

// NewProcessingInterceptor adapts a function to ports.ProcessingInterceptor.
func NewProcessingInterceptor(
	id string,
	priority int,
	fn func(ctx context.Context, pctx *domain.ProcessingContext, next ports.ProcessingNext) (*domain.ProcessingResult, error),
) ports.ProcessingInterceptor {
	return &processingFunc{id: id, priority: priority, fn: fn}
}

func (p *processingFunc) ID() string    { return p.id }
func (p *processingFunc) Priority() int { return p.priority }

func (p *processingFunc) Intercept(ctx context.Context, pctx *domain.ProcessingContext, next ports.ProcessingNext) (*domain.ProcessingResult, error) {
	return p.fn(ctx, pctx, next)
}
