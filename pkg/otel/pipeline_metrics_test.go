package otel

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGetPipelineMetricsSingleton(t *testing.T) {
	const callers = 16

	results := make([]*PipelineMetrics, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = GetPipelineMetrics()
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Fatalf("Concurrent callers received different instances: %p vs %p", results[0], results[i])
		}
	}
}

func TestPipelineMetricsRecordIsSafe(t *testing.T) {
	m := GetPipelineMetrics()
	ctx := context.Background()

	// Without an initialized meter provider these must be no-ops, not panics
	m.RecordSubmitted(ctx)
	m.RecordCompleted(ctx, "confirmed")
	m.RecordAttempt(ctx)
	m.RecordStageDuration(ctx, "routing", 10*time.Millisecond)
}
