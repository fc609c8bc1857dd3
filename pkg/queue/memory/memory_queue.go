// Package memory provides the in-memory job queue backend. It is the
// authoritative implementation for tests and single-process deployments;
// the redis backend provides the durable equivalent.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/erain9/routingo/pkg/core"
	"github.com/erain9/routingo/pkg/queue"
	"github.com/rs/zerolog/log"
)

// MemoryQueue implements queue.JobQueue with process-local state
type MemoryQueue struct {
	cfg queue.Config

	mu     sync.Mutex
	keys   map[string]struct{}
	ready  []*queue.Job
	timers map[string]*time.Timer
	closed bool

	wake     chan struct{}
	closedCh chan struct{}
}

// NewMemoryQueue creates an in-memory queue with the given retry policy
func NewMemoryQueue(cfg queue.Config) *MemoryQueue {
	return &MemoryQueue{
		cfg:      cfg,
		keys:     make(map[string]struct{}),
		timers:   make(map[string]*time.Timer),
		wake:     make(chan struct{}, 1),
		closedCh: make(chan struct{}),
	}
}

// Enqueue admits one job per order identifier. Duplicate submissions while
// a job is pending or active are no-ops.
func (q *MemoryQueue) Enqueue(ctx context.Context, order *core.Order) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, queue.ErrQueueClosed
	}

	if _, exists := q.keys[order.ID()]; exists {
		log.Debug().Str("order_id", order.ID()).Msg("Duplicate submission ignored")
		return false, nil
	}

	q.keys[order.ID()] = struct{}{}
	q.ready = append(q.ready, &queue.Job{Order: order})
	q.signal()

	return true, nil
}

// Dequeue blocks until a job is ready, the context is done, or the queue
// closes
func (q *MemoryQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	for {
		q.mu.Lock()
		if len(q.ready) > 0 {
			job := q.ready[0]
			q.ready = q.ready[1:]
			job.Attempt++
			job.Order.SetAttempts(job.Attempt)
			if len(q.ready) > 0 {
				// Keep other blocked workers awake
				q.signal()
			}
			q.mu.Unlock()
			return job, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, queue.ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.closedCh:
			return nil, queue.ErrQueueClosed
		case <-q.wake:
		}
	}
}

// Ack clears the job's order key so the identifier may be submitted again
func (q *MemoryQueue) Ack(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.keys, job.Order.ID())
	return nil
}

// Nack schedules a retry with exponential backoff, or permanently fails
// the job once attempts are exhausted
func (q *MemoryQueue) Nack(ctx context.Context, job *queue.Job, cause error) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, queue.ErrQueueClosed
	}

	if job.Attempt >= q.cfg.MaxAttempts {
		delete(q.keys, job.Order.ID())
		log.Warn().
			Str("order_id", job.Order.ID()).
			Int("attempts", job.Attempt).
			Err(cause).
			Msg("Job permanently failed")
		return false, nil
	}

	delay := q.cfg.BackoffFor(job.Attempt)
	log.Debug().
		Str("order_id", job.Order.ID()).
		Int("attempt", job.Attempt).
		Dur("backoff", delay).
		Err(cause).
		Msg("Scheduling job retry")

	orderID := job.Order.ID()
	q.timers[orderID] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		delete(q.timers, orderID)
		if q.closed {
			return
		}
		q.ready = append(q.ready, job)
		q.signal()
	})

	return true, nil
}

// Close stops the queue. Pending retry timers are discarded.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	close(q.closedCh)

	return nil
}

// signal wakes one blocked Dequeue. Callers must hold the mutex.
func (q *MemoryQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Ensure MemoryQueue implements queue.JobQueue
var _ queue.JobQueue = (*MemoryQueue)(nil)
