// Command loadtest drives an in-process pipeline at a fixed submission
// rate and reports end-to-end order latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/nikolaydubina/fpdecimal"
	"golang.org/x/time/rate"

	"github.com/erain9/routingo/pkg/core"
	"github.com/erain9/routingo/pkg/dex"
	"github.com/erain9/routingo/pkg/logging"
	"github.com/erain9/routingo/pkg/pipeline"
	"github.com/erain9/routingo/pkg/queue"
	"github.com/erain9/routingo/pkg/queue/memory"
	"github.com/erain9/routingo/pkg/subs"
	"github.com/erain9/routingo/pkg/worker"
)

func main() {
	numOrders := flag.Int("orders", 1000, "Total number of orders to submit")
	submitRate := flag.Int("rate", 200, "Submissions per second")
	concurrency := flag.Int("concurrency", 10, "Number of execution workers")
	failureRate := flag.Float64("failure-rate", 0.08, "Simulated execution failure rate")
	pacing := flag.Duration("pacing", 0, "Inter-stage pacing (zero for max throughput)")
	flag.Parse()

	logging.Setup(logging.Config{Level: "warn", Pretty: true, Output: os.Stderr})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, cleaning up...")
		cancel()
	}()

	const maxAttempts = 3
	q := memory.NewMemoryQueue(queue.Config{
		MaxAttempts: maxAttempts,
		BaseBackoff: 50 * time.Millisecond,
		MaxBackoff:  time.Second,
	})
	defer q.Close()

	registry := subs.NewRegistry()
	router := dex.NewMockRouter(dex.MockConfig{
		BasePrice:   100,
		FailureRate: *failureRate,
		QuoteMinLat: 5 * time.Millisecond,
		QuoteMaxLat: 20 * time.Millisecond,
		ExecMinLat:  20 * time.Millisecond,
		ExecMaxLat:  50 * time.Millisecond,
	})

	pool := worker.NewPool(worker.Config{
		Concurrency:  *concurrency,
		StagePacing:  *pacing,
		AttachGrace:  time.Second,
		StageTimeout: 10 * time.Second,
	}, worker.Deps{
		Queue:    q,
		Router:   router,
		Registry: registry,
	})
	pool.Start(ctx)

	coordinator := pipeline.NewCoordinator(q, registry, nil)

	// Latency is measured from submission to the terminal event
	hist := hdrhistogram.New(1, 60_000, 3)
	var histMu sync.Mutex
	var confirmed, failed atomic.Int64

	limiter := rate.NewLimiter(rate.Limit(*submitRate), 1)
	var wg sync.WaitGroup

	log.Printf("Submitting %d orders at %d/s with %d workers...", *numOrders, *submitRate, *concurrency)
	start := time.Now()

	for i := 0; i < *numOrders; i++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		sub := subs.NewChannelSubscriber(64)
		submitted := time.Now()
		_, err := coordinator.Submit(ctx, pipeline.SubmitRequest{
			UserID:   fmt.Sprintf("loadtest-%d", i),
			Type:     "market",
			TokenIn:  "SOL",
			TokenOut: "USDC",
			AmountIn: fpdecimal.FromFloat(10.0),
		}, sub)
		if err != nil {
			log.Printf("Submit failed: %v", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sub.Close()
			attemptsFailed := 0
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-sub.Events():
					switch {
					case ev.Status == core.StatusConfirmed:
						confirmed.Add(1)
						histMu.Lock()
						_ = hist.RecordValue(time.Since(submitted).Milliseconds())
						histMu.Unlock()
						return
					case ev.Status == core.StatusFailed:
						attemptsFailed++
						// The stream ends after the last allowed attempt fails
						if attemptsFailed == maxAttempts {
							failed.Add(1)
							histMu.Lock()
							_ = hist.RecordValue(time.Since(submitted).Milliseconds())
							histMu.Unlock()
							return
						}
					}
				}
			}
		}()
	}

	wg.Wait()
	duration := time.Since(start)

	log.Printf("Load test completed in %v", duration)
	log.Printf("Orders submitted: %d", *numOrders)
	log.Printf("Confirmed: %d", confirmed.Load())
	log.Printf("Permanently failed: %d", failed.Load())
	log.Printf("Throughput: %.1f orders/s", float64(confirmed.Load()+failed.Load())/duration.Seconds())

	histMu.Lock()
	log.Printf("Latency ms p50=%d p95=%d p99=%d max=%d",
		hist.ValueAtQuantile(50),
		hist.ValueAtQuantile(95),
		hist.ValueAtQuantile(99),
		hist.Max())
	histMu.Unlock()
}
