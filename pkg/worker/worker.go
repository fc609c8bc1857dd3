// Package worker implements the execution worker pool: a fixed number of
// workers pulling jobs from the queue and driving each order through the
// routing/execution state machine, broadcasting every transition.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/erain9/routingo/pkg/core"
	"github.com/erain9/routingo/pkg/dex"
	"github.com/erain9/routingo/pkg/logging"
	"github.com/erain9/routingo/pkg/messaging"
	"github.com/erain9/routingo/pkg/otel"
	"github.com/erain9/routingo/pkg/queue"
	"github.com/erain9/routingo/pkg/store"
	"github.com/erain9/routingo/pkg/subs"
)

// Config holds the worker pool parameters
type Config struct {
	// Concurrency is the number of workers pulling from the queue
	Concurrency int
	// StagePacing is the delay inserted between stage broadcasts so the
	// stream is human-watchable. Zero disables pacing.
	StagePacing time.Duration
	// AttachGrace bounds how long the first emit waits for a subscriber.
	// The worker starts as soon as a subscriber attaches or the grace
	// elapses, whichever happens first.
	AttachGrace time.Duration
	// StageTimeout bounds each quote/execute call so a stuck provider
	// cannot occupy a worker forever
	StageTimeout time.Duration
}

// DefaultConfig returns the stock worker pool parameters
func DefaultConfig() Config {
	return Config{
		Concurrency:  10,
		StagePacing:  800 * time.Millisecond,
		AttachGrace:  2 * time.Second,
		StageTimeout: 30 * time.Second,
	}
}

// Deps are the explicitly owned collaborators of the pool. Queue, Router
// and Registry are required; Outcomes and Audit may be nil.
type Deps struct {
	Queue    queue.JobQueue
	Router   dex.Router
	Registry *subs.Registry
	// Outcomes receives one terminal message per finished order
	Outcomes messaging.MessageSender
	// Audit records the final error of permanently failed orders
	Audit store.OrderStore
}

// Pool is a fixed-size execution worker pool
type Pool struct {
	cfg     Config
	deps    Deps
	metrics *otel.PipelineMetrics
	wg      sync.WaitGroup
}

// attemptResult carries the details of a confirmed execution
type attemptResult struct {
	chosenSource  string
	txHash        string
	executedPrice string
}

// NewPool creates a worker pool. Start must be called to begin processing.
func NewPool(cfg Config, deps Deps) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	return &Pool{
		cfg:     cfg,
		deps:    deps,
		metrics: otel.GetPipelineMetrics(),
	}
}

// Start launches the workers. They run until the context is canceled or
// the queue closes.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Wait blocks until every worker has exited
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	logger := logging.FromContext(ctx).With().Int("worker", id).Logger()
	logger.Debug().Msg("Worker started")

	for {
		job, err := p.deps.Queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Debug().Msg("Worker stopped")
				return
			}
			logger.Error().Err(err).Msg("Dequeue failed")
			continue
		}

		p.process(ctx, job)
	}
}

// process runs one execution attempt and settles it with the queue
func (p *Pool) process(ctx context.Context, job *queue.Job) {
	orderID := job.Order.ID()
	logger := logging.FromContext(logging.WithOrderID(ctx, orderID))
	p.metrics.RecordAttempt(ctx)

	// Two-phase start: give a subscriber the chance to attach before the
	// first emit, without an unconditional sleep
	p.awaitSubscriber(ctx, orderID)

	result, err := p.executeAttempt(ctx, job)
	if err == nil {
		if ackErr := p.deps.Queue.Ack(ctx, job); ackErr != nil {
			logger.Error().Err(ackErr).Msg("Failed to ack job")
		}
		p.deps.Registry.Release(orderID)
		p.metrics.RecordCompleted(ctx, string(core.StatusConfirmed))
		p.publishOutcome(ctx, &messaging.OutcomeMessage{
			OrderID:       orderID,
			Status:        string(core.StatusConfirmed),
			ChosenSource:  result.chosenSource,
			TxHash:        result.txHash,
			ExecutedPrice: result.executedPrice,
			Attempts:      job.Attempt,
		})
		logger.Info().
			Str("tx_hash", result.txHash).
			Int("attempt", job.Attempt).
			Msg("Order confirmed")
		return
	}

	retry, nackErr := p.deps.Queue.Nack(ctx, job, err)
	if nackErr != nil {
		// The queue owns retry accounting; without a settled nack the
		// job's fate is unknown, so do not report a permanent outcome
		logger.Error().Err(nackErr).Msg("Failed to nack job")
		return
	}
	if retry {
		logger.Warn().Err(err).Int("attempt", job.Attempt).Msg("Attempt failed, retry scheduled")
		return
	}

	// Permanently failed: release subscribers and record the last error
	p.deps.Registry.Release(orderID)
	p.metrics.RecordCompleted(ctx, string(core.StatusFailed))
	if p.deps.Audit != nil {
		if auditErr := p.deps.Audit.SetLastError(ctx, orderID, err.Error()); auditErr != nil {
			logger.Warn().Err(auditErr).Msg("Failed to record last error")
		}
	}
	p.publishOutcome(ctx, &messaging.OutcomeMessage{
		OrderID:  orderID,
		Status:   string(core.StatusFailed),
		Error:    err.Error(),
		Attempts: job.Attempt,
	})
	logger.Error().Err(err).Int("attempts", job.Attempt).Msg("Order permanently failed")
}

// executeAttempt drives the state machine for one attempt. Every stage
// transition is broadcast; any failure emits a single failed event for
// this attempt and is returned to the caller for retry accounting.
func (p *Pool) executeAttempt(ctx context.Context, job *queue.Job) (*attemptResult, error) {
	order := job.Order
	orderID := order.ID()

	p.emit(orderID, core.StatusEvent{OrderID: orderID, Status: core.StatusPending})
	if err := p.pace(ctx); err != nil {
		return nil, p.fail(orderID, err)
	}

	p.emit(orderID, core.StatusEvent{OrderID: orderID, Status: core.StatusRouting})

	best, err := p.route(ctx, order)
	if err != nil {
		return nil, p.fail(orderID, err)
	}
	if err := p.pace(ctx); err != nil {
		return nil, p.fail(orderID, err)
	}

	p.emit(orderID, core.StatusEvent{
		OrderID:      orderID,
		Status:       core.StatusBuilding,
		ChosenSource: best.Source,
		Quote:        &best,
	})
	if err := p.pace(ctx); err != nil {
		return nil, p.fail(orderID, err)
	}

	p.emit(orderID, core.StatusEvent{
		OrderID:      orderID,
		Status:       core.StatusSubmitted,
		ChosenSource: best.Source,
	})

	execCtx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	start := time.Now()
	res, err := p.deps.Router.Execute(execCtx, best.Source, order)
	cancel()
	p.metrics.RecordStageDuration(ctx, "execute", time.Since(start))
	if err != nil {
		return nil, p.fail(orderID, fmt.Errorf("execution on %s failed: %w", best.Source, err))
	}

	p.emit(orderID, core.StatusEvent{
		OrderID:       orderID,
		Status:        core.StatusConfirmed,
		ChosenSource:  best.Source,
		TxHash:        res.TxHash,
		ExecutedPrice: res.ExecutedPrice,
	})

	return &attemptResult{
		chosenSource:  best.Source,
		txHash:        res.TxHash,
		executedPrice: res.ExecutedPrice.String(),
	}, nil
}

// route requests one quote from each source concurrently and picks the
// winner. Both quotes must succeed; there is no single-source fallback.
func (p *Pool) route(ctx context.Context, order *core.Order) (core.Quote, error) {
	sources := p.deps.Router.Sources()
	if len(sources) != 2 {
		return core.Quote{}, fmt.Errorf("expected exactly 2 liquidity sources, got %d", len(sources))
	}

	routeCtx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	start := time.Now()
	quotes := make([]core.Quote, len(sources))
	g, gCtx := errgroup.WithContext(routeCtx)
	for i, source := range sources {
		g.Go(func() error {
			q, err := p.deps.Router.Quote(gCtx, source, order.TokenIn(), order.TokenOut(), order.AmountIn())
			if err != nil {
				return fmt.Errorf("quote from %s failed: %w", source, err)
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Quote{}, err
	}
	p.metrics.RecordStageDuration(ctx, "routing", time.Since(start))

	// Quotes are compared in Sources() order, so ties go to the
	// first-listed source
	return dex.BestQuote(quotes[0], quotes[1]), nil
}

// fail broadcasts the failed event for this attempt and passes the cause
// through
func (p *Pool) fail(orderID string, cause error) error {
	p.emit(orderID, core.StatusEvent{
		OrderID: orderID,
		Status:  core.StatusFailed,
		Error:   cause.Error(),
	})
	return cause
}

func (p *Pool) emit(orderID string, event core.StatusEvent) {
	p.deps.Registry.Publish(orderID, event)
}

// awaitSubscriber blocks until a subscriber attaches or the grace elapses
func (p *Pool) awaitSubscriber(ctx context.Context, orderID string) {
	if p.cfg.AttachGrace <= 0 {
		return
	}

	timer := time.NewTimer(p.cfg.AttachGrace)
	defer timer.Stop()

	select {
	case <-p.deps.Registry.Attached(orderID):
	case <-timer.C:
	case <-ctx.Done():
	}
}

// pace inserts the configured inter-stage delay
func (p *Pool) pace(ctx context.Context) error {
	if p.cfg.StagePacing <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.cfg.StagePacing)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// publishOutcome best-effort publishes the terminal message to the feed
func (p *Pool) publishOutcome(ctx context.Context, msg *messaging.OutcomeMessage) {
	if p.deps.Outcomes == nil {
		return
	}
	if err := p.deps.Outcomes.SendOutcomeMessage(msg); err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().
			Str("order_id", msg.OrderID).
			Err(err).
			Msg("Failed to publish order outcome")
	}
}
