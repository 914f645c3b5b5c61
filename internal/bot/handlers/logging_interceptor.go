package handlers

import (
	"SimBot/internal/bot"
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"SimBot/internal/interceptor"
	"context"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterProcessingInterceptor(NewEventLogging)
	bot.RegisterListenerInterceptor(NewListenerLogging)
}

// NewEventLogging logs every dispatch with its duration and outcome.
func NewEventLogging(bot.Deps) ports.ProcessingInterceptor {
	return interceptor.NewProcessingInterceptor("event_logging", ports.PriorityFirst,
		func(ctx context.Context, pctx *domain.ProcessingContext, next ports.ProcessingNext) (*domain.ProcessingResult, error) {
			log := zerolog.Ctx(ctx)
			start := time.Now()

			res, err := next(ctx)
			if err != nil {
				log.Error().Err(err).Dur("took", time.Since(start)).Msg("Event dispatch failed")
				return res, err
			}

			ev := log.Debug()
			if res != nil {
				if errs := res.Errors(); len(errs) > 0 {
					ev = log.Warn().Int("errors", len(errs))
				}
				ev = ev.Int("results", len(res.Results)).Bool("truncated", res.IsTruncated())
			}
			ev.Dur("took", time.Since(start)).Msg("Event dispatched")
			return res, nil
		})
}

// NewListenerLogging traces each listener invocation.
func NewListenerLogging(bot.Deps) ports.ListenerInterceptor {
	return interceptor.NewListenerInterceptor("listener_logging", ports.PriorityFirst,
		func(ctx context.Context, inv ports.ListenerInvocation, next ports.ListenerNext) (domain.EventResult, error) {
			log := zerolog.Ctx(ctx).With().Str("listener_id", inv.Listener.ID()).Logger()
			start := time.Now()

			res, err := next(ctx)
			if err != nil {
				log.Warn().Err(err).Dur("took", time.Since(start)).Msg("Listener failed")
				return res, err
			}
			log.Debug().Stringer("result", res.Kind).Dur("took", time.Since(start)).Msg("Listener done")
			return res, nil
		})
}
