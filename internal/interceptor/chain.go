package interceptor

import (
	"SimBot/internal/core/domain"
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

// Next is the downstream call an interceptor may proceed to.
type Next[R any] func(ctx context.Context) (R, error)

// InterceptFunc is the body of one interceptor over target T producing R.
type InterceptFunc[T, R any] func(ctx context.Context, target T, next Next[R]) (R, error)

type entry[T, R any] struct {
	id        string
	priority  int
	seq       uint64
	intercept InterceptFunc[T, R]
}

// Chain is an ordered list of interceptors. It is sorted by ascending
// priority, ties broken by registration order; the first entry is outermost.
type Chain[T, R any] struct {
	kind string

	mu      sync.Mutex
	seq     uint64
	entries atomic.Pointer[[]entry[T, R]]
}

// NewChain creates an empty chain. kind names it in duplicate-id errors.
func NewChain[T, R any](kind string) *Chain[T, R] {
	c := &Chain[T, R]{kind: kind}
	empty := []entry[T, R]{}
	c.entries.Store(&empty)
	return c
}

// Add registers an interceptor. Ids must be unique within the chain.
func (c *Chain[T, R]) Add(id string, priority int, fn InterceptFunc[T, R]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := *c.entries.Load()
	for _, e := range current {
		if e.id == id {
			return &domain.DuplicateIDError{Kind: c.kind, ID: id}
		}
	}

	c.seq++
	next := make([]entry[T, R], len(current), len(current)+1)
	copy(next, current)
	next = append(next, entry[T, R]{id: id, priority: priority, seq: c.seq, intercept: fn})
	sort.SliceStable(next, func(i, j int) bool {
		if next[i].priority != next[j].priority {
			return next[i].priority < next[j].priority
		}
		return next[i].seq < next[j].seq
	})
	c.entries.Store(&next)
	return nil
}

// Remove unregisters the interceptor with id.
func (c *Chain[T, R]) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := *c.entries.Load()
	for i, e := range current {
		if e.id != id {
			continue
		}
		next := make([]entry[T, R], 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		c.entries.Store(&next)
		return true
	}
	return false
}

// Len returns the number of interceptors.
func (c *Chain[T, R]) Len() int {
	return len(*c.entries.Load())
}

// IDs returns interceptor ids in execution order.
func (c *Chain[T, R]) IDs() []string {
	current := *c.entries.Load()
	ids := make([]string, len(current))
	for i, e := range current {
		ids[i] = e.id
	}
	return ids
}

// Execute folds the chain around terminal and runs it.
// Errors raised by an interceptor are wrapped in domain.InterceptorError;
// errors coming up from downstream pass through untouched.
func (c *Chain[T, R]) Execute(ctx context.Context, target T, terminal Next[R]) (R, error) {
	current := *c.entries.Load()
	call := terminal
	for i := len(current) - 1; i >= 0; i-- {
		call = current[i].wrap(target, call)
	}
	return call(ctx)
}

func (e entry[T, R]) wrap(target T, next Next[R]) Next[R] {
	return func(ctx context.Context) (R, error) {
		var downstream error
		res, err := e.intercept(ctx, target, func(ctx context.Context) (R, error) {
			r, err := next(ctx)
			downstream = err
			return r, err
		})
		if err != nil && (downstream == nil || !errors.Is(err, downstream)) {
			err = &domain.InterceptorError{InterceptorID: e.id, Err: err}
		}
		return res, err
	}
}
