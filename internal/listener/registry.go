package listener

import (
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"sort"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/rs/zerolog"
)

type registered struct {
	listener ports.EventListener
	seq      uint64
}

// Registry holds the registered listeners, keyed by their unique id.
// Lookups by event key are cached per key identity until the next mutation.
type Registry struct {
	log zerolog.Logger

	mu        sync.RWMutex
	seq       uint64
	listeners map[string]registered
	cache     *haxmap.Map[uint64, []ports.EventListener]
}

// NewRegistry creates an empty listener registry.
func NewRegistry(baseLogger *zerolog.Logger) *Registry {
	return &Registry{
		log:       baseLogger.With().Str("component", "listener_registry").Logger(),
		listeners: make(map[string]registered),
		cache:     haxmap.New[uint64, []ports.EventListener](),
	}
}

// Register adds a listener. It fails with *domain.DuplicateIDError if the
// id is already taken, leaving the registry unchanged.
func (r *Registry) Register(l ports.EventListener) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := l.ID()
	if _, exists := r.listeners[id]; exists {
		return &domain.DuplicateIDError{Kind: "listener", ID: id}
	}

	r.seq++
	r.listeners[id] = registered{listener: l, seq: r.seq}
	r.invalidate()

	r.log.Info().
		Str("listener_id", id).
		Int("priority", l.Priority()).
		Bool("async", l.IsAsync()).
		Msg("Registered new listener")
	return nil
}

// Unregister removes the listener with id.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.listeners[id]; !exists {
		return false
	}
	delete(r.listeners, id)
	r.invalidate()

	r.log.Info().Str("listener_id", id).Msg("Unregistered listener")
	return true
}

// Get returns the listener registered under id.
func (r *Registry) Get(id string) (ports.EventListener, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.listeners[id]
	return reg.listener, ok
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// ListenersFor returns the listeners targeting key, sorted ascending by
// priority with ties in registration order. The returned slice is shared
// with the cache and must not be modified.
func (r *Registry) ListenersFor(key *domain.Key) []ports.EventListener {
	if key == nil {
		return nil
	}

	// The read lock pins the cache map: a mutation swaps it only under the
	// write lock, so an entry stored here can never be stale.
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cached, ok := r.cache.Get(key.Serial()); ok {
		return cached
	}

	matched := make([]registered, 0, len(r.listeners))
	for _, reg := range r.listeners {
		if reg.listener.IsTarget(key) {
			matched = append(matched, reg)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		pi, pj := matched[i].listener.Priority(), matched[j].listener.Priority()
		if pi != pj {
			return pi < pj
		}
		return matched[i].seq < matched[j].seq
	})

	out := make([]ports.EventListener, len(matched))
	for i, reg := range matched {
		out[i] = reg.listener
	}
	r.cache.Set(key.Serial(), out)
	return out
}

// invalidate must be called with the write lock held.
func (r *Registry) invalidate() {
	r.cache = haxmap.New[uint64, []ports.EventListener]()
}
