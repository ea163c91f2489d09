// Package bus routes inbound events to subscribers. One router instance
// serves both the live transport and the demo orchestrator, so consumers
// see a single stream regardless of origin.
package bus

import (
	"sync"

	"github.com/aegis-watch/console/internal/event"
)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Handler receives one event. Handlers run on the publishing goroutine;
// they must not block indefinitely.
type Handler func(event.Event)

type subscription struct {
	handler Handler
}

// Router is a typed publish/subscribe dispatcher. Dispatch order per
// event: channel-specific handlers in insertion order, then wildcard
// handlers in insertion order. Each publish iterates a point-in-time
// copy of the handler list, so subscribing or unsubscribing from inside
// a handler only affects subsequent events.
type Router struct {
	mu       sync.Mutex
	channels map[string][]*subscription
	wildcard []*subscription

	// dispatchMu serializes publishes so delivery is strict arrival
	// order even with multiple producers.
	dispatchMu sync.Mutex
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{channels: make(map[string][]*subscription)}
}

// On registers handler for the given channel (an event type string, or
// Wildcard). The returned func unsubscribes; calling it more than once
// is harmless, and calling it from inside a handler is safe.
func (r *Router) On(channel string, handler Handler) func() {
	sub := &subscription{handler: handler}

	r.mu.Lock()
	if channel == Wildcard {
		r.wildcard = append(r.wildcard, sub)
	} else {
		r.channels[channel] = append(r.channels[channel], sub)
	}
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(channel, sub) })
	}
}

func (r *Router) remove(channel string, sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if channel == Wildcard {
		r.wildcard = removeSub(r.wildcard, sub)
		return
	}
	r.channels[channel] = removeSub(r.channels[channel], sub)
	if len(r.channels[channel]) == 0 {
		delete(r.channels, channel)
	}
}

func removeSub(subs []*subscription, target *subscription) []*subscription {
	for i, s := range subs {
		if s == target {
			out := make([]*subscription, 0, len(subs)-1)
			out = append(out, subs[:i]...)
			return append(out, subs[i+1:]...)
		}
	}
	return subs
}

// Publish delivers ev to all matching handlers. The handler snapshot is
// taken before any handler runs; mutations made during the pass apply to
// the next pass.
func (r *Router) Publish(ev event.Event) {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	r.mu.Lock()
	pass := make([]*subscription, 0, len(r.channels[string(ev.Type)])+len(r.wildcard))
	pass = append(pass, r.channels[string(ev.Type)]...)
	pass = append(pass, r.wildcard...)
	r.mu.Unlock()

	for _, sub := range pass {
		sub.handler(ev)
	}
}

// Clear drops every subscription. Used on session teardown.
func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = make(map[string][]*subscription)
	r.wildcard = nil
}

// HandlerCount reports the number of live subscriptions, wildcard
// included.
func (r *Router) HandlerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.wildcard)
	for _, subs := range r.channels {
		n += len(subs)
	}
	return n
}
