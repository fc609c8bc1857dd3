// Package pipeline wires the submission side of the engine: request
// validation, order creation, audit persistence and queue admission.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolaydubina/fpdecimal"

	"github.com/erain9/routingo/pkg/core"
	"github.com/erain9/routingo/pkg/logging"
	"github.com/erain9/routingo/pkg/otel"
	"github.com/erain9/routingo/pkg/queue"
	"github.com/erain9/routingo/pkg/store"
	"github.com/erain9/routingo/pkg/subs"
)

// ErrInvalidRequest is wrapped by every validation failure
var ErrInvalidRequest = errors.New("invalid submit request")

// SubmitRequest is a client order submission
type SubmitRequest struct {
	UserID   string
	Type     string
	TokenIn  string
	TokenOut string
	AmountIn fpdecimal.Decimal
}

// Validate checks the request fields. Validation failures surface
// synchronously; everything past admission is reported through the
// status stream.
func (r SubmitRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	if r.Type != string(core.TypeMarket) {
		return fmt.Errorf("%w: unsupported order type %q", ErrInvalidRequest, r.Type)
	}
	if r.TokenIn == "" {
		return fmt.Errorf("%w: tokenIn is required", ErrInvalidRequest)
	}
	if r.TokenOut == "" {
		return fmt.Errorf("%w: tokenOut is required", ErrInvalidRequest)
	}
	if r.AmountIn.LessThanOrEqual(fpdecimal.Zero) {
		return fmt.Errorf("%w: amountIn must be positive", ErrInvalidRequest)
	}
	return nil
}

// Coordinator accepts orders and hands them to the execution pipeline
type Coordinator struct {
	queue    queue.JobQueue
	registry *subs.Registry
	audit    store.OrderStore
	metrics  *otel.PipelineMetrics
}

// NewCoordinator creates a coordinator. The audit store may be nil.
func NewCoordinator(q queue.JobQueue, registry *subs.Registry, audit store.OrderStore) *Coordinator {
	if audit == nil {
		audit = store.NoopStore{}
	}

	return &Coordinator{
		queue:    q,
		registry: registry,
		audit:    audit,
		metrics:  otel.GetPipelineMetrics(),
	}
}

// Submit validates the request, assigns an order id and admits the order
// to the queue. When sub is non-nil it is attached before admission so the
// subscriber observes the stream from the first event.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest, sub subs.Subscriber) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	order := core.NewMarketOrder(uuid.NewString(), req.UserID, req.TokenIn, req.TokenOut, req.AmountIn)
	if _, err := c.SubmitOrder(ctx, order, sub); err != nil {
		return "", err
	}

	return order.ID(), nil
}

// SubmitOrder admits a pre-built order. Admission is idempotent on the
// order id: a second call for the same id reports admitted=false and
// leaves the in-flight order untouched.
func (c *Coordinator) SubmitOrder(ctx context.Context, order *core.Order, sub subs.Subscriber) (bool, error) {
	logger := logging.FromContext(logging.WithOrderID(ctx, order.ID()))

	if sub != nil {
		c.registry.Attach(sub, order.ID())
	}

	// The audit row is best effort: a storage outage must not block
	// admission
	go func(auditCtx context.Context) {
		if err := c.audit.SaveOrder(auditCtx, order); err != nil {
			logger.Warn().Err(err).Msg("Failed to persist order audit row")
		}
	}(context.WithoutCancel(ctx))

	admitted, err := c.queue.Enqueue(ctx, order)
	if err != nil {
		if sub != nil {
			c.registry.Detach(sub, order.ID())
		}
		return false, fmt.Errorf("failed to enqueue order: %w", err)
	}
	if !admitted {
		logger.Debug().Msg("Duplicate submission ignored")
		return false, nil
	}

	c.metrics.RecordSubmitted(ctx)
	logger.Info().
		Str("user_id", order.UserID()).
		Str("token_in", order.TokenIn()).
		Str("token_out", order.TokenOut()).
		Msg("Order admitted")

	return true, nil
}
