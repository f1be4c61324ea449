/*
Package events implements the subscription registry that fans inbound channel events
out to listeners.

Listeners are keyed by event kind. Every subscription returns a Handle; invoking it
removes exactly that registration and is a no-op on every later call.
*/
package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Local event kinds published by the client itself rather than the backend.
const (
	KindState       = "state"
	KindTypingState = "typing_state"
)

// Handle removes the registration it was returned for. Safe to call more than once.
type Handle func()

// Noop is the handle returned when nothing was registered.
func Noop() {}

type listener struct {
	id uint64
	fn func(any)
}

// Registry is a kind-keyed publish/subscribe registry.
type Registry struct {
	mu        sync.RWMutex
	listeners map[string][]listener
	nextID    uint64
	closed    bool
	logger    zerolog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		listeners: make(map[string][]listener),
		logger:    logger,
	}
}

// Subscribe registers fn for every event of the given kind.
// On a closed registry nothing is registered and a no-op handle is returned.
func (r *Registry) Subscribe(kind string, fn func(any)) Handle {
	if fn == nil {
		return Noop
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Noop
	}

	r.nextID++
	id := r.nextID
	r.listeners[kind] = append(r.listeners[kind], listener{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(kind, id) })
	}
}

func (r *Registry) remove(kind string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.listeners[kind]
	for i, l := range subs {
		if l.id == id {
			// copy so that an in-flight Publish keeps iterating its own snapshot
			next := make([]listener, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(r.listeners, kind)
			} else {
				r.listeners[kind] = next
			}
			return
		}
	}
}

// Publish delivers payload to every listener of kind, in subscription order.
// Listeners run on the caller's goroutine, outside the registry lock.
func (r *Registry) Publish(kind string, payload any) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return
	}
	subs := r.listeners[kind]
	r.mu.RUnlock()

	for _, l := range subs {
		r.invoke(kind, l, payload)
	}
}

func (r *Registry) invoke(kind string, l listener, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("event", kind).
				Interface("panic", rec).
				Msg("Listener panicked; event delivery continues")
		}
	}()
	l.fn(payload)
}

// Count returns the number of live listeners for kind.
func (r *Registry) Count(kind string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[kind])
}

// Close drops every listener. Later subscriptions return no-op handles and
// outstanding handles stay safe to invoke.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.listeners = make(map[string][]listener)
}

// On subscribes a typed listener. Payloads of another type are ignored.
func On[T any](r *Registry, kind string, fn func(T)) Handle {
	if r == nil || fn == nil {
		return Noop
	}
	return r.Subscribe(kind, func(payload any) {
		if v, ok := payload.(T); ok {
			fn(v)
		}
	})
}
