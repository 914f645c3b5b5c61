package domain

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ResultKind tags an EventResult.
type ResultKind int

const (
	ResultEmpty ResultKind = iota
	ResultNormal
	ResultTruncated
	ResultAsync
	ResultExceptional
)

func (k ResultKind) String() string {
	switch k {
	case ResultEmpty:
		return "empty"
	case ResultNormal:
		return "normal"
	case ResultTruncated:
		return "truncated"
	case ResultAsync:
		return "async"
	case ResultExceptional:
		return "exceptional"
	default:
		return "unknown"
	}
}

// EventResult is the outcome of one listener invocation.
type EventResult struct {
	Kind       ResultKind
	Value      any
	Err        error
	Handle     *AsyncHandle
	ListenerID string

	truncating bool
}

func Empty() EventResult               { return EventResult{Kind: ResultEmpty} }
func Normal(v any) EventResult         { return EventResult{Kind: ResultNormal, Value: v} }
func Truncated(v any) EventResult      { return EventResult{Kind: ResultTruncated, Value: v} }
func Async(h *AsyncHandle) EventResult { return EventResult{Kind: ResultAsync, Handle: h} }

// Exceptional wraps a failure. If err wraps ErrTruncate the result truncates.
func Exceptional(err error) EventResult {
	return EventResult{
		Kind:       ResultExceptional,
		Err:        err,
		truncating: errors.Is(err, ErrTruncate),
	}
}

// IsTruncated reports whether this result stops later sync listeners.
// Async results never truncate.
func (r EventResult) IsTruncated() bool {
	switch r.Kind {
	case ResultTruncated:
		return true
	case ResultExceptional:
		return r.truncating
	default:
		return false
	}
}

// IsEmpty reports whether the result can be ignored.
func (r EventResult) IsEmpty() bool {
	return r.Kind == ResultEmpty
}

// AsyncHandle is the pending handle of an async listener launch.
type AsyncHandle struct {
	listenerID string
	launchedAt time.Time
	done       chan struct{}
	once       sync.Once
	result     EventResult
}

// NewAsyncHandle creates a handle and the function that completes it.
// Only the first completion is kept.
func NewAsyncHandle(listenerID string) (*AsyncHandle, func(EventResult)) {
	h := &AsyncHandle{
		listenerID: listenerID,
		launchedAt: time.Now(),
		done:       make(chan struct{}),
	}
	return h, h.complete
}

func (h *AsyncHandle) complete(r EventResult) {
	h.once.Do(func() {
		h.result = r
		close(h.done)
	})
}

func (h *AsyncHandle) ListenerID() string    { return h.listenerID }
func (h *AsyncHandle) LaunchedAt() time.Time { return h.launchedAt }
func (h *AsyncHandle) Done() <-chan struct{} { return h.done }

// Await blocks until the async listener finished or ctx ends.
func (h *AsyncHandle) Await(ctx context.Context) (EventResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return EventResult{}, ctx.Err()
	}
}

// ProcessingResult aggregates all listener results of one dispatch.
type ProcessingResult struct {
	Event   Event
	Results []EventResult
}

// NewProcessingResult builds the aggregate for event.
func NewProcessingResult(event Event, results []EventResult) *ProcessingResult {
	return &ProcessingResult{Event: event, Results: results}
}

// IsTruncated reports whether a sync listener truncated the dispatch.
func (r *ProcessingResult) IsTruncated() bool {
	for _, res := range r.Results {
		if res.IsTruncated() {
			return true
		}
	}
	return false
}

// Errors returns the errors of all exceptional results, in order.
func (r *ProcessingResult) Errors() []error {
	var errs []error
	for _, res := range r.Results {
		if res.Kind == ResultExceptional && res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errs
}

// AwaitAsync waits for every async handle and returns the results with each
// async entry replaced by the listener's final result.
func (r *ProcessingResult) AwaitAsync(ctx context.Context) ([]EventResult, error) {
	out := make([]EventResult, len(r.Results))
	for i, res := range r.Results {
		if res.Kind != ResultAsync || res.Handle == nil {
			out[i] = res
			continue
		}
		final, err := res.Handle.Await(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = final
	}
	return out, nil
}
