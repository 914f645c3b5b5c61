package postgres

import (
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// NotificationSource turns NOTIFY messages on one channel into events.
type NotificationSource struct {
	db        *DB
	channel   string
	processor ports.EventProcessor
	workers   int
	log       zerolog.Logger
}

// NewNotificationSource creates a LISTEN/NOTIFY event source.
func NewNotificationSource(
	db *DB,
	channel string,
	processor ports.EventProcessor,
	workers int,
	baseLogger *zerolog.Logger,
) *NotificationSource {
	return &NotificationSource{
		db:        db,
		channel:   channel,
		processor: processor,
		workers:   max(workers, 1),
		log:       baseLogger.With().Str("component", "pg_notify_source").Str("channel", channel).Logger(),
	}
}

// Start holds one pooled connection in LISTEN mode and pushes every
// notification until ctx is cancelled. Malformed payloads are logged and
// skipped.
func (s *NotificationSource) Start(ctx context.Context) error {
	conn, err := s.db.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", s.channel, err)
	}
	s.log.Info().Int("workers", s.workers).Msg("Listening for notifications")

	return s.serve(ctx, conn.Conn().WaitForNotification)
}

// serve pushes notifications through a bounded worker pool so a listener
// waiting on a later notification does not stall the receive loop. It waits
// for in-flight notifications before returning.
func (s *NotificationSource) serve(ctx context.Context, wait func(context.Context) (*pgconn.Notification, error)) error {
	workers := pool.New().WithMaxGoroutines(s.workers)
	defer workers.Wait()

	for {
		n, err := wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info().Msg("Notification listener stopped gracefully")
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		workers.Go(func() {
			s.handle(ctx, n.PID, n.Payload)
		})
	}
}

func (s *NotificationSource) handle(ctx context.Context, pid uint32, payload string) {
	event, err := ParseNotification(payload)
	if err != nil {
		s.log.Warn().Err(err).Uint32("pid", pid).Msg("Dropping malformed notification")
		return
	}

	ctxLogger := s.log.With().Str("event_id", event.ID()).Logger()
	result, err := s.processor.Push(ctxLogger.WithContext(ctx), event)
	if err != nil {
		if errors.Is(err, domain.ErrProcessorClosed) {
			ctxLogger.Debug().Msg("Processor closed, notification dropped")
			return
		}
		ctxLogger.Error().Err(err).Msg("Event dispatch failed")
		return
	}
	for _, lerr := range result.Errors() {
		ctxLogger.Warn().Err(lerr).Msg("Listener reported an error")
	}
}
