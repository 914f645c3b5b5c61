package domain

import "sync"

// AttributeKey is a typed attribute name.
type AttributeKey[T any] struct {
	name string
}

// NewAttributeKey creates a typed attribute key.
func NewAttributeKey[T any](name string) AttributeKey[T] {
	return AttributeKey[T]{name: name}
}

func (k AttributeKey[T]) Name() string {
	return k.name
}

// TextContentKey holds the plain text derived from a TextEvent.
var TextContentKey = NewAttributeKey[string]("text_content")

// AttributeContainer exposes untyped attribute lookup.
type AttributeContainer interface {
	Attribute(name string) (any, bool)
}

// GetAttribute reads a typed attribute from c.
func GetAttribute[T any](c AttributeContainer, key AttributeKey[T]) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.Attribute(key.name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Attributes is a concurrency-safe attribute store.
type Attributes struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]any)}
}

// Attribute implements AttributeContainer.
func (a *Attributes) Attribute(name string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[name]
	return v, ok
}

func (a *Attributes) set(name string, v any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[name] = v
}

// SetAttribute stores a typed attribute.
func SetAttribute[T any](a *Attributes, key AttributeKey[T], v T) {
	a.set(key.name, v)
}

// ProcessingContext is the per-dispatch state shared by listeners and
// interceptors of one event.
type ProcessingContext struct {
	event Event
	attrs *Attributes

	mu      sync.RWMutex
	results []EventResult
}

// NewProcessingContext creates the context for event and derives its text
// content when the event carries text.
func NewProcessingContext(event Event) *ProcessingContext {
	c := &ProcessingContext{
		event: event,
		attrs: NewAttributes(),
	}
	if te, ok := event.(TextEvent); ok {
		SetAttribute(c.attrs, TextContentKey, te.Text())
	}
	return c
}

func (c *ProcessingContext) Event() Event {
	return c.event
}

// Attributes returns the scratch attribute store.
func (c *ProcessingContext) Attributes() *Attributes {
	return c.attrs
}

// Attribute implements AttributeContainer.
func (c *ProcessingContext) Attribute(name string) (any, bool) {
	return c.attrs.Attribute(name)
}

// TextContent returns the derived text content, if any.
func (c *ProcessingContext) TextContent() (string, bool) {
	return GetAttribute(c, TextContentKey)
}

// AppendResult records a listener result.
func (c *ProcessingContext) AppendResult(r EventResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// Results returns a snapshot of the results recorded so far.
func (c *ProcessingContext) Results() []EventResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]EventResult, len(c.results))
	copy(out, c.results)
	return out
}
