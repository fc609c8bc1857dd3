package otel

import (
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
)

// StartRuntimeMetrics initializes OpenTelemetry runtime metrics collection
// (memory allocation, GC statistics, goroutine counts)
func StartRuntimeMetrics() error {
	return runtime.Start(
		runtime.WithMinimumReadMemStatsInterval(time.Second * 30),
	)
}
