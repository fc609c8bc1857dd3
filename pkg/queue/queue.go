// Package queue defines the job queue contract for the execution pipeline:
// one job per order, idempotent admission per order identifier, and a
// bounded retry policy with exponential backoff.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/erain9/routingo/pkg/core"
)

// ErrQueueClosed is returned by queue operations after Close
var ErrQueueClosed = errors.New("job queue closed")

// Job wraps one order while it transits the queue. A job belongs to the
// queue until a worker dequeues it; the worker then holds exclusive
// processing rights until it acks or nacks.
type Job struct {
	Order *core.Order
	// Attempt is 1-based while the job is being processed
	Attempt int
}

// Config is the retry policy applied to failing jobs
type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultConfig returns the stock retry policy: 3 attempts with
// exponential backoff from 500ms
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  60 * time.Second,
	}
}

// BackoffFor returns the delay before re-dispatching a job that has just
// failed its n-th attempt (1-based). The delay doubles per attempt and is
// capped at MaxBackoff.
func (c Config) BackoffFor(attempt int) time.Duration {
	if attempt < 1 {
		return c.BaseBackoff
	}

	// 2^30 seconds already exceeds any sane cap
	shift := attempt - 1
	if shift > 30 {
		return c.MaxBackoff
	}

	backoff := c.BaseBackoff * time.Duration(1<<shift)
	if c.MaxBackoff > 0 && backoff > c.MaxBackoff {
		return c.MaxBackoff
	}

	return backoff
}

// JobQueue is the contract between the coordinator (producer side) and the
// worker pool (consumer side).
type JobQueue interface {
	// Enqueue admits one job keyed by the order identifier. If a job for
	// the same identifier is already pending or active the call is a
	// no-op and admitted is false.
	Enqueue(ctx context.Context, order *core.Order) (admitted bool, err error)

	// Dequeue blocks until a job is available or the context is done.
	// The returned job's Attempt is already incremented for this run.
	Dequeue(ctx context.Context) (*Job, error)

	// Ack marks the job's order as done; its identifier may be submitted
	// again afterwards.
	Ack(ctx context.Context, job *Job) error

	// Nack reports a failed attempt. When attempts remain, the job is
	// re-dispatched after the backoff delay and retry is true. Otherwise
	// the job is permanently failed and dropped.
	Nack(ctx context.Context, job *Job, cause error) (retry bool, err error)

	// Close releases the queue's resources; blocked Dequeues return
	// ErrQueueClosed.
	Close() error
}
