package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/erain9/routingo"

var (
	// pipelineMetrics holds the singleton instance
	pipelineMetrics     *PipelineMetrics
	pipelineMetricsOnce sync.Once
)

// PipelineMetrics holds metrics for the order execution pipeline
type PipelineMetrics struct {
	ordersSubmitted metric.Int64Counter
	ordersCompleted metric.Int64Counter
	attemptsTotal   metric.Int64Counter
	stageDuration   metric.Float64Histogram
}

// GetPipelineMetrics returns the PipelineMetrics singleton
func GetPipelineMetrics() *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = newPipelineMetrics()
	})
	return pipelineMetrics
}

// newPipelineMetrics registers the pipeline instruments. Registration
// failures degrade to no-op instruments rather than failing the caller.
func newPipelineMetrics() *PipelineMetrics {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	ordersSubmitted, err := meter.Int64Counter(
		"pipeline.orders_submitted.total",
		metric.WithDescription("Total number of orders admitted to the queue"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return &PipelineMetrics{}
	}

	ordersCompleted, err := meter.Int64Counter(
		"pipeline.orders_completed.total",
		metric.WithDescription("Total number of orders that reached a terminal status"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return &PipelineMetrics{}
	}

	attemptsTotal, err := meter.Int64Counter(
		"pipeline.execution_attempts.total",
		metric.WithDescription("Total number of execution attempts across all orders"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return &PipelineMetrics{}
	}

	stageDuration, err := meter.Float64Histogram(
		"pipeline.stage.duration",
		metric.WithDescription("Duration of individual pipeline stages"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return &PipelineMetrics{}
	}

	return &PipelineMetrics{
		ordersSubmitted: ordersSubmitted,
		ordersCompleted: ordersCompleted,
		attemptsTotal:   attemptsTotal,
		stageDuration:   stageDuration,
	}
}

// RecordSubmitted increments the submitted orders counter
func (m *PipelineMetrics) RecordSubmitted(ctx context.Context) {
	if m.ordersSubmitted == nil {
		return
	}
	m.ordersSubmitted.Add(ctx, 1)
}

// RecordCompleted increments the completed orders counter by terminal status
func (m *PipelineMetrics) RecordCompleted(ctx context.Context, status string) {
	if m.ordersCompleted == nil {
		return
	}
	m.ordersCompleted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("order.status", status),
	))
}

// RecordAttempt increments the execution attempts counter
func (m *PipelineMetrics) RecordAttempt(ctx context.Context) {
	if m.attemptsTotal == nil {
		return
	}
	m.attemptsTotal.Add(ctx, 1)
}

// RecordStageDuration records how long a pipeline stage took
func (m *PipelineMetrics) RecordStageDuration(ctx context.Context, stage string, d time.Duration) {
	if m.stageDuration == nil {
		return
	}
	m.stageDuration.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(
		attribute.String("pipeline.stage", stage),
	))
}
