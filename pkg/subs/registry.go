// Package subs implements the per-order subscription registry that fans
// status events out to live subscriber channels. The registry holds only
// non-owning references: a subscriber that errors on send is detached
// silently and never fails the broadcasting worker.
package subs

import (
	"sync"

	"github.com/erain9/routingo/pkg/core"
	"github.com/rs/zerolog/log"
)

// Subscriber receives status events for one order. Send must not block;
// a non-nil error marks the subscriber dead and detaches it.
type Subscriber interface {
	Send(event core.StatusEvent) error
}

// Registry maps order identifiers to their live subscribers. Attach and
// Detach arrive from the transport layer while workers publish
// concurrently, so all state is mutex-protected.
type Registry struct {
	mu       sync.RWMutex
	subs     map[string]map[Subscriber]struct{}
	attached map[string]chan struct{}
}

// NewRegistry creates an empty subscription registry
func NewRegistry() *Registry {
	return &Registry{
		subs:     make(map[string]map[Subscriber]struct{}),
		attached: make(map[string]chan struct{}),
	}
}

// Attach registers a subscriber for an order. Multiple subscribers may
// watch the same order; attaching the same subscriber twice is a no-op.
func (r *Registry) Attach(sub Subscriber, orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subs[orderID]
	if !ok {
		set = make(map[Subscriber]struct{})
		r.subs[orderID] = set
	}
	set[sub] = struct{}{}

	// Signal any worker waiting for a first subscriber
	if ch, ok := r.attached[orderID]; ok {
		select {
		case <-ch:
		default:
			close(ch)
		}
	} else {
		ch := make(chan struct{})
		close(ch)
		r.attached[orderID] = ch
	}
}

// Detach removes a subscriber from an order without affecting others
func (r *Registry) Detach(sub Subscriber, orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.subs[orderID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(r.subs, orderID)
		}
	}
}

// Attached returns a channel that is closed once at least one subscriber
// has attached to the order. Workers select on it against a grace timer
// before the first emit.
func (r *Registry) Attached(orderID string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.attached[orderID]
	if !ok {
		ch = make(chan struct{})
		if _, hasSubs := r.subs[orderID]; hasSubs {
			close(ch)
		}
		r.attached[orderID] = ch
	}
	return ch
}

// Publish forwards an event to every subscriber attached to the order.
// Dead subscribers are dropped; Publish never fails.
func (r *Registry) Publish(orderID string, event core.StatusEvent) {
	r.mu.RLock()
	targets := make([]Subscriber, 0, len(r.subs[orderID]))
	for sub := range r.subs[orderID] {
		targets = append(targets, sub)
	}
	r.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.Send(event); err != nil {
			log.Debug().
				Str("order_id", orderID).
				Str("status", string(event.Status)).
				Err(err).
				Msg("Dropping dead subscriber")
			r.Detach(sub, orderID)
		}
	}
}

// Release drops all registry state for an order. Called after the terminal
// event has been broadcast.
func (r *Registry) Release(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.subs, orderID)
	delete(r.attached, orderID)
}

// SubscriberCount returns the number of live subscribers for an order
func (r *Registry) SubscriberCount(orderID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[orderID])
}
