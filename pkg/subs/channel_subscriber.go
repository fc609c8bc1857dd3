package subs

import (
	"errors"
	"sync"

	"github.com/erain9/routingo/pkg/core"
)

// ErrSubscriberClosed is returned by Send after the subscriber has closed
var ErrSubscriberClosed = errors.New("subscriber closed")

// ErrSubscriberOverflow is returned when the subscriber's buffer is full.
// A consumer that stopped draining is treated the same as one that closed.
var ErrSubscriberOverflow = errors.New("subscriber buffer full")

// ChannelSubscriber adapts a buffered Go channel to the Subscriber
// interface. It is the in-process stand-in for a transport connection:
// closing it turns further sends into errors, which the registry converts
// into a silent detach.
type ChannelSubscriber struct {
	mu     sync.Mutex
	ch     chan core.StatusEvent
	closed bool
}

// NewChannelSubscriber creates a subscriber with the given buffer size
func NewChannelSubscriber(buffer int) *ChannelSubscriber {
	return &ChannelSubscriber{
		ch: make(chan core.StatusEvent, buffer),
	}
}

// Send delivers an event without blocking
func (s *ChannelSubscriber) Send(event core.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSubscriberClosed
	}

	select {
	case s.ch <- event:
		return nil
	default:
		return ErrSubscriberOverflow
	}
}

// Events returns the receive side of the subscriber
func (s *ChannelSubscriber) Events() <-chan core.StatusEvent {
	return s.ch
}

// Close stops the subscriber. Idempotent; pending buffered events remain
// readable until the channel drains.
func (s *ChannelSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Ensure ChannelSubscriber implements Subscriber
var _ Subscriber = (*ChannelSubscriber)(nil)
