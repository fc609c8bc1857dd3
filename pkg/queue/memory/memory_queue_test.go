package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erain9/routingo/pkg/core"
	"github.com/erain9/routingo/pkg/queue"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() queue.Config {
	return queue.Config{
		MaxAttempts: 3,
		BaseBackoff: 10 * time.Millisecond,
		MaxBackoff:  time.Second,
	}
}

func newOrder(id string) *core.Order {
	return core.NewMarketOrder(id, "user-1", "SOL", "USDC", fpdecimal.FromFloat(10.0))
}

func TestBackoffForDoubles(t *testing.T) {
	cfg := queue.DefaultConfig()

	assert.Equal(t, 500*time.Millisecond, cfg.BackoffFor(1))
	assert.Equal(t, time.Second, cfg.BackoffFor(2))
	assert.Equal(t, 2*time.Second, cfg.BackoffFor(3))
}

func TestBackoffForCapped(t *testing.T) {
	cfg := queue.DefaultConfig()

	assert.Equal(t, cfg.MaxBackoff, cfg.BackoffFor(20))
	assert.Equal(t, cfg.MaxBackoff, cfg.BackoffFor(64))
	assert.Equal(t, cfg.BaseBackoff, cfg.BackoffFor(0))
}

func TestEnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(testConfig())
	defer q.Close()
	ctx := context.Background()

	admitted, err := q.Enqueue(ctx, newOrder("order-1"))
	require.NoError(t, err)
	assert.True(t, admitted)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order-1", job.Order.ID())
	assert.Equal(t, 1, job.Attempt)
	assert.Equal(t, 1, job.Order.Attempts())
}

func TestEnqueueIdempotentPerKey(t *testing.T) {
	q := NewMemoryQueue(testConfig())
	defer q.Close()
	ctx := context.Background()

	admitted, err := q.Enqueue(ctx, newOrder("order-1"))
	require.NoError(t, err)
	assert.True(t, admitted)

	// Same key while pending: no-op
	admitted, err = q.Enqueue(ctx, newOrder("order-1"))
	require.NoError(t, err)
	assert.False(t, admitted)

	// Still a no-op while the job is active
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)

	admitted, err = q.Enqueue(ctx, newOrder("order-1"))
	require.NoError(t, err)
	assert.False(t, admitted)

	// After ack the key is free again
	require.NoError(t, q.Ack(ctx, job))

	admitted, err = q.Enqueue(ctx, newOrder("order-1"))
	require.NoError(t, err)
	assert.True(t, admitted)
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewMemoryQueue(testConfig())
	defer q.Close()
	ctx := context.Background()

	done := make(chan *queue.Job, 1)
	go func() {
		job, err := q.Dequeue(ctx)
		if err == nil {
			done <- job
		}
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := q.Enqueue(ctx, newOrder("order-1"))
	require.NoError(t, err)

	select {
	case job := <-done:
		assert.Equal(t, "order-1", job.Order.ID())
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not wake after enqueue")
	}
}

func TestDequeueRespectsContext(t *testing.T) {
	q := NewMemoryQueue(testConfig())
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNackRetriesWithIncreasingDelay(t *testing.T) {
	q := NewMemoryQueue(testConfig())
	defer q.Close()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, newOrder("order-1"))
	require.NoError(t, err)

	cause := errors.New("routing failed")
	var gaps []time.Duration
	last := time.Now()

	for attempt := 1; attempt <= 3; attempt++ {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, attempt, job.Attempt)

		gaps = append(gaps, time.Since(last))
		last = time.Now()

		retry, err := q.Nack(ctx, job, cause)
		require.NoError(t, err)
		assert.Equal(t, attempt < 3, retry, "attempt %d", attempt)
	}

	// Delay before attempt 2 is one base backoff, before attempt 3 two
	assert.GreaterOrEqual(t, gaps[1], 10*time.Millisecond)
	assert.GreaterOrEqual(t, gaps[2], 20*time.Millisecond)
	assert.Greater(t, gaps[2], gaps[1])
}

func TestNackExhaustionFreesKey(t *testing.T) {
	q := NewMemoryQueue(testConfig())
	defer q.Close()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, newOrder("order-1"))
	require.NoError(t, err)

	attempts := 0
	for {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		attempts++

		retry, err := q.Nack(ctx, job, errors.New("always fails"))
		require.NoError(t, err)
		if !retry {
			break
		}
	}

	assert.Equal(t, 3, attempts, "job must be attempted exactly MaxAttempts times")

	// Terminally failed job releases the admission key
	admitted, err := q.Enqueue(ctx, newOrder("order-1"))
	require.NoError(t, err)
	assert.True(t, admitted)
}

func TestFIFOArrivalOrder(t *testing.T) {
	q := NewMemoryQueue(testConfig())
	defer q.Close()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(ctx, newOrder(id))
		require.NoError(t, err)
	}

	for _, want := range []string{"a", "b", "c"} {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, job.Order.ID())
	}
}

func TestCloseUnblocksDequeue(t *testing.T) {
	q := NewMemoryQueue(testConfig())

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, queue.ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not unblock on close")
	}

	_, err := q.Enqueue(context.Background(), newOrder("order-1"))
	assert.ErrorIs(t, err, queue.ErrQueueClosed)
}

func TestConcurrentEnqueueSingleAdmission(t *testing.T) {
	q := NewMemoryQueue(testConfig())
	defer q.Close()
	ctx := context.Background()

	const submitters = 16
	results := make(chan bool, submitters)
	for i := 0; i < submitters; i++ {
		go func() {
			admitted, err := q.Enqueue(ctx, newOrder("order-1"))
			if err != nil {
				admitted = false
			}
			results <- admitted
		}()
	}

	admittedCount := 0
	for i := 0; i < submitters; i++ {
		if <-results {
			admittedCount++
		}
	}

	assert.Equal(t, 1, admittedCount, "exactly one concurrent submission may be admitted")
}
