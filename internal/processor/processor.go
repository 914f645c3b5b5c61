package processor

import (
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"SimBot/internal/interceptor"
	"SimBot/internal/listener"
	"SimBot/internal/session"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Processor runs the full lifecycle of one event: listener selection,
// async-first ordering, both interceptor chains and the session path.
type Processor struct {
	log        zerolog.Logger
	registry   *listener.Registry
	processing *interceptor.ProcessingChain
	listeners  *interceptor.ListenerChain
	sessions   *session.Manager

	mu     sync.RWMutex
	closed bool
	async  conc.WaitGroup
}

var _ ports.EventProcessor = (*Processor)(nil)

// New creates a processor over process-scoped state built by the caller.
func New(
	registry *listener.Registry,
	processing *interceptor.ProcessingChain,
	listeners *interceptor.ListenerChain,
	sessions *session.Manager,
	baseLogger *zerolog.Logger,
) *Processor {
	return &Processor{
		log:        baseLogger.With().Str("component", "event_processor").Logger(),
		registry:   registry,
		processing: processing,
		listeners:  listeners,
		sessions:   sessions,
	}
}

func (p *Processor) Registry() *listener.Registry { return p.registry }
func (p *Processor) Sessions() *session.Manager   { return p.sessions }

// Push dispatches event and returns the aggregate of all listener results.
// Listener failures are reported inside the result; only a failing
// processing interceptor makes Push return an error.
func (p *Processor) Push(ctx context.Context, event domain.Event) (*domain.ProcessingResult, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, domain.ErrProcessorClosed
	}
	if eventKey(event) == nil {
		return nil, domain.ErrInvalidEvent
	}

	ctxLogger := p.log.With().
		Str("event_id", event.ID()).
		Str("event_key", event.Key().ID()).
		Logger()
	ctx = ctxLogger.WithContext(ctx)

	pctx := domain.NewProcessingContext(event)

	// Sessions registered while this event is dispatched only see later events.
	pending := p.sessions.Pending()
	var sessionPath conc.WaitGroup
	sessionPath.Go(func() {
		pending.Process(ctx, pctx)
	})

	start := time.Now()
	res, err := p.runProcessingChain(ctx, pctx)
	sessionPath.Wait()

	if err != nil {
		ctxLogger.Error().Err(err).Msg("Event processing failed")
		return nil, err
	}
	if res == nil {
		// An interceptor short-circuited without building a result.
		res = domain.NewProcessingResult(event, pctx.Results())
	}
	ctxLogger.Debug().
		Int("results", len(res.Results)).
		Bool("truncated", res.IsTruncated()).
		Dur("elapsed", time.Since(start)).
		Msg("Event processed")
	return res, nil
}

// eventKey returns nil for a nil event, a typed nil pointer, or an event
// without key.
func eventKey(event domain.Event) (key *domain.Key) {
	if event == nil {
		return nil
	}
	var catcher panics.Catcher
	catcher.Try(func() {
		key = event.Key()
	})
	return key
}

func (p *Processor) runProcessingChain(ctx context.Context, pctx *domain.ProcessingContext) (res *domain.ProcessingResult, err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		res, err = p.processing.Execute(ctx, pctx, func(ctx context.Context) (*domain.ProcessingResult, error) {
			return p.dispatch(ctx, pctx), nil
		})
	})
	if r := catcher.Recovered(); r != nil {
		return nil, &domain.InterceptorError{InterceptorID: "processing_chain", Err: r.AsError()}
	}
	return res, err
}

// dispatch launches async listeners, then runs sync listeners in priority
// order until one truncates.
func (p *Processor) dispatch(ctx context.Context, pctx *domain.ProcessingContext) *domain.ProcessingResult {
	log := zerolog.Ctx(ctx)
	event := pctx.Event()

	targets := p.registry.ListenersFor(event.Key())
	if len(targets) == 0 {
		log.Debug().Msg("No listener targets event")
		return domain.NewProcessingResult(event, pctx.Results())
	}

	syncListeners := make([]ports.EventListener, 0, len(targets))
	for _, l := range targets {
		if l.IsAsync() {
			pctx.AppendResult(p.launch(ctx, l, pctx))
			continue
		}
		syncListeners = append(syncListeners, l)
	}

	for _, l := range syncListeners {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Str("listener_id", l.ID()).Msg("Dispatch stopped, context done")
			break
		}
		res := p.invoke(ctx, l, pctx)
		pctx.AppendResult(res)
		if res.IsTruncated() {
			log.Debug().Str("listener_id", l.ID()).Msg("Dispatch truncated")
			break
		}
	}

	return domain.NewProcessingResult(event, pctx.Results())
}

// launch starts an async listener in its own goroutine, detached from the
// caller's cancellation.
func (p *Processor) launch(ctx context.Context, l ports.EventListener, pctx *domain.ProcessingContext) domain.EventResult {
	h, complete := domain.NewAsyncHandle(l.ID())
	res := domain.Async(h)
	res.ListenerID = l.ID()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		complete(domain.Exceptional(&domain.ListenerInvocationError{ListenerID: l.ID(), Err: domain.ErrProcessorClosed}))
		return res
	}

	asyncCtx := context.WithoutCancel(ctx)
	p.async.Go(func() {
		complete(p.invoke(asyncCtx, l, pctx))
	})
	return res
}

// invoke runs one listener through the listener chain. Errors and panics
// become Exceptional results.
func (p *Processor) invoke(ctx context.Context, l ports.EventListener, pctx *domain.ProcessingContext) domain.EventResult {
	var (
		res domain.EventResult
		err error
	)
	var catcher panics.Catcher
	catcher.Try(func() {
		res, err = p.listeners.Execute(ctx, ports.ListenerInvocation{Listener: l, Context: pctx})
	})
	if r := catcher.Recovered(); r != nil {
		err = r.AsError()
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("listener_id", l.ID()).Msg("Listener failed")
		res = domain.Exceptional(&domain.ListenerInvocationError{ListenerID: l.ID(), Err: err})
	}
	res.ListenerID = l.ID()
	return res
}

// IsProcessable reports whether pushing an event of key could reach
// anything: a targeting listener or a pending session.
func (p *Processor) IsProcessable(key *domain.Key) bool {
	return len(p.registry.ListenersFor(key)) > 0 || p.sessions.Len() > 0
}

// Close cancels all pending sessions, rejects further pushes and waits
// for launched async listeners to return.
func (p *Processor) Close() {
	p.sessions.Close()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.async.Wait()
	p.log.Info().Msg("Event processor closed")
}
