package feed

import (
	"context"
	"fmt"

	"github.com/erain9/routingo/pkg/messaging"
)

// SenderPool is an explicitly owned pool of message senders. It replaces
// a process-wide singleton: callers construct it at startup, pass it where
// needed, and close it on shutdown.
type SenderPool struct {
	senders chan messaging.MessageSender
	factory func() (messaging.MessageSender, error)
}

// NewSenderPool pre-populates a pool of the given size using the factory
func NewSenderPool(size int, factory func() (messaging.MessageSender, error)) (*SenderPool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}

	pool := &SenderPool{
		senders: make(chan messaging.MessageSender, size),
		factory: factory,
	}

	for i := 0; i < size; i++ {
		sender, err := factory()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create sender %d: %w", i, err)
		}
		pool.senders <- sender
	}

	return pool, nil
}

// Get takes a sender from the pool, or nil when the pool is exhausted
func (p *SenderPool) Get() messaging.MessageSender {
	select {
	case sender := <-p.senders:
		return sender
	default:
		return nil
	}
}

// Return puts a sender back into the pool
func (p *SenderPool) Return(sender messaging.MessageSender) {
	if sender == nil {
		return
	}

	select {
	case p.senders <- sender:
	default:
		_ = sender.Close()
	}
}

// Send publishes a message using a pooled sender. A sender that errors is
// closed and replaced rather than returned to the pool.
func (p *SenderPool) Send(ctx context.Context, msg *messaging.OutcomeMessage) error {
	sender := p.Get()
	if sender == nil {
		return fmt.Errorf("failed to get message sender from pool")
	}

	if err := sender.SendOutcomeMessage(msg); err != nil {
		_ = sender.Close()
		if replacement, ferr := p.factory(); ferr == nil {
			p.Return(replacement)
		}
		return err
	}

	p.Return(sender)
	return nil
}

// PooledMessageSender exposes a SenderPool through the MessageSender
// interface so the pool can sit behind the same seam as a single producer
type PooledMessageSender struct {
	pool *SenderPool
}

// NewPooledMessageSender wraps an existing pool
func NewPooledMessageSender(pool *SenderPool) *PooledMessageSender {
	return &PooledMessageSender{pool: pool}
}

// SendOutcomeMessage publishes through a pooled sender
func (s *PooledMessageSender) SendOutcomeMessage(msg *messaging.OutcomeMessage) error {
	return s.pool.Send(context.Background(), msg)
}

// Close closes every pooled sender
func (s *PooledMessageSender) Close() error {
	s.pool.Close()
	return nil
}

// Close drains the pool and closes every sender
func (p *SenderPool) Close() {
	for {
		select {
		case sender := <-p.senders:
			_ = sender.Close()
		default:
			return
		}
	}
}
