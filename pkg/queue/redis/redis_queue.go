// Package redis provides the durable job queue backend. Admission keys,
// ready jobs and delayed retries all live in Redis so a restarted process
// resumes where it stopped.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/erain9/routingo/pkg/core"
	"github.com/erain9/routingo/pkg/queue"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions represents configuration options for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// GetRedisClient creates a new Redis client from the given options
func GetRedisClient(options *RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     options.Addr,
		Password: options.Password,
		DB:       options.DB,
	})
}

// RedisQueue implements queue.JobQueue on top of Redis.
//
// Key layout (all under the configured prefix):
//
//	<prefix>:pending   set    admission keys, one per live order
//	<prefix>:ready     list   order ids ready for dispatch
//	<prefix>:delayed   zset   order ids scheduled for retry, scored by ready time
//	<prefix>:jobs      hash   order id -> serialized order
//	<prefix>:attempts  hash   order id -> attempt count
type RedisQueue struct {
	client *redis.Client
	cfg    queue.Config
	logger *zap.Logger
	prefix string

	pendingKey  string
	readyKey    string
	delayedKey  string
	jobsKey     string
	attemptsKey string
}

// NewRedisQueue creates a durable queue using the given client and prefix
func NewRedisQueue(client *redis.Client, prefix string, cfg queue.Config, logger *zap.Logger) *RedisQueue {
	return &RedisQueue{
		client:      client,
		cfg:         cfg,
		logger:      logger,
		prefix:      prefix,
		pendingKey:  fmt.Sprintf("%s:pending", prefix),
		readyKey:    fmt.Sprintf("%s:ready", prefix),
		delayedKey:  fmt.Sprintf("%s:delayed", prefix),
		jobsKey:     fmt.Sprintf("%s:jobs", prefix),
		attemptsKey: fmt.Sprintf("%s:attempts", prefix),
	}
}

// Enqueue admits one job per order identifier. The SADD on the pending set
// is the atomic admission check for concurrent submissions of one id.
func (q *RedisQueue) Enqueue(ctx context.Context, order *core.Order) (bool, error) {
	added, err := q.client.SAdd(ctx, q.pendingKey, order.ID()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to admit job: %w", err)
	}
	if added == 0 {
		q.logger.Debug("duplicate submission ignored",
			zap.String("orderID", order.ID()))
		return false, nil
	}

	data, err := json.Marshal(order)
	if err != nil {
		// Roll the admission back so the id is not wedged
		q.client.SRem(ctx, q.pendingKey, order.ID())
		return false, fmt.Errorf("failed to marshal order: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobsKey, order.ID(), data)
	pipe.HSet(ctx, q.attemptsKey, order.ID(), 0)
	pipe.LPush(ctx, q.readyKey, order.ID())
	if _, err := pipe.Exec(ctx); err != nil {
		q.client.SRem(ctx, q.pendingKey, order.ID())
		return false, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return true, nil
}

// Dequeue blocks until a job is ready or the context is done. Delayed
// retries whose backoff has elapsed are promoted on each poll.
func (q *RedisQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q.promoteDelayed(ctx)

		res, err := q.client.BRPop(ctx, time.Second, q.readyKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to dequeue job: %w", err)
		}

		orderID := res[1]
		job, err := q.loadJob(ctx, orderID)
		if err != nil {
			// Malformed payloads are rejected at the boundary, so this is
			// a storage-level inconsistency: drop the key and keep serving.
			q.logger.Error("dropping unreadable job",
				zap.String("orderID", orderID),
				zap.Error(err))
			q.cleanup(ctx, orderID)
			continue
		}

		return job, nil
	}
}

// Ack marks the job's order as done and frees its admission key
func (q *RedisQueue) Ack(ctx context.Context, job *queue.Job) error {
	q.cleanup(ctx, job.Order.ID())
	return nil
}

// Nack schedules a retry after backoff, or permanently fails the job when
// attempts are exhausted
func (q *RedisQueue) Nack(ctx context.Context, job *queue.Job, cause error) (bool, error) {
	if job.Attempt >= q.cfg.MaxAttempts {
		q.logger.Warn("job permanently failed",
			zap.String("orderID", job.Order.ID()),
			zap.Int("attempts", job.Attempt),
			zap.Error(cause))
		q.cleanup(ctx, job.Order.ID())
		return false, nil
	}

	readyAt := time.Now().Add(q.cfg.BackoffFor(job.Attempt))
	err := q.client.ZAdd(ctx, q.delayedKey, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: job.Order.ID(),
	}).Err()
	if err != nil {
		return false, fmt.Errorf("failed to schedule retry: %w", err)
	}

	q.logger.Debug("scheduled job retry",
		zap.String("orderID", job.Order.ID()),
		zap.Int("attempt", job.Attempt),
		zap.Time("readyAt", readyAt),
		zap.Error(cause))

	return true, nil
}

// Close closes the underlying Redis client
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// loadJob reads the serialized order and bumps its attempt counter
func (q *RedisQueue) loadJob(ctx context.Context, orderID string) (*queue.Job, error) {
	data, err := q.client.HGet(ctx, q.jobsKey, orderID).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to load job payload: %w", err)
	}

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job payload: %w", err)
	}

	attempt, err := q.client.HIncrBy(ctx, q.attemptsKey, orderID, 1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to increment attempt counter: %w", err)
	}

	order.SetAttempts(int(attempt))

	return &queue.Job{Order: &order, Attempt: int(attempt)}, nil
}

// promoteDelayed moves due retries from the delayed zset to the ready list.
// Every polling worker runs this concurrently, so each member is claimed by
// its ZRem: only the caller whose removal took effect pushes the id, keeping
// one ready entry per job.
func (q *RedisQueue) promoteDelayed(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil || len(due) == 0 {
		if err != nil && err != redis.Nil {
			q.logger.Error("failed to scan delayed jobs", zap.Error(err))
		}
		return
	}

	for _, orderID := range due {
		removed, err := q.client.ZRem(ctx, q.delayedKey, orderID).Result()
		if err != nil {
			q.logger.Error("failed to claim delayed job",
				zap.String("orderID", orderID),
				zap.Error(err))
			continue
		}
		if removed == 0 {
			// Another worker claimed this member first
			continue
		}
		if err := q.client.LPush(ctx, q.readyKey, orderID).Err(); err != nil {
			// Undo the claim so the retry is not lost
			q.client.ZAdd(ctx, q.delayedKey, redis.Z{Member: orderID})
			q.logger.Error("failed to promote delayed job",
				zap.String("orderID", orderID),
				zap.Error(err))
		}
	}
}

// cleanup removes all queue state for an order identifier
func (q *RedisQueue) cleanup(ctx context.Context, orderID string) {
	pipe := q.client.TxPipeline()
	pipe.SRem(ctx, q.pendingKey, orderID)
	pipe.HDel(ctx, q.jobsKey, orderID)
	pipe.HDel(ctx, q.attemptsKey, orderID)
	pipe.ZRem(ctx, q.delayedKey, orderID)
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Error("failed to clean up job state",
			zap.String("orderID", orderID),
			zap.Error(err))
	}
}

// Ensure RedisQueue implements queue.JobQueue
var _ queue.JobQueue = (*RedisQueue)(nil)
