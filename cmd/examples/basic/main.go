// Submits a single market swap order to an in-process pipeline and prints
// the colored status stream as it unfolds.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/nikolaydubina/fpdecimal"

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
	logging.Setup(logging.Config{Level: "warn", Pretty: true, Output: os.Stderr})

	cyan := color.New(color.FgCyan).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	yellow := color.New(color.FgYellow).SprintfFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := memory.NewMemoryQueue(queue.DefaultConfig())
	defer q.Close()

	registry := subs.NewRegistry()
	router := dex.NewMockRouter(dex.DefaultMockConfig())

	cfg := worker.DefaultConfig()
	cfg.Concurrency = 2
	pool := worker.NewPool(cfg, worker.Deps{
		Queue:    q,
		Router:   router,
		Registry: registry,
	})
	pool.Start(ctx)

	coordinator := pipeline.NewCoordinator(q, registry, nil)

	sub := subs.NewChannelSubscriber(16)
	orderID, err := coordinator.Submit(ctx, pipeline.SubmitRequest{
		UserID:   "demo-user",
		Type:     "market",
		TokenIn:  "SOL",
		TokenOut: "USDC",
		AmountIn: fpdecimal.FromFloat(10.0),
	}, sub)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Submitted order %s (10 SOL -> USDC)\n\n", cyan("%s", orderID))

	maxAttempts := queue.DefaultConfig().MaxAttempts
	failures := 0
	timeout := time.After(60 * time.Second)
	for {
		select {
		case <-timeout:
			fmt.Println(red("timed out waiting for a terminal status"))
			return
		case ev := <-sub.Events():
			switch ev.Status {
			case core.StatusBuilding:
				fmt.Printf("%s  source=%s price=%s fee=%s\n",
					yellow("%-9s", ev.Status), ev.ChosenSource, ev.Quote.Price, ev.Quote.Fee)
			case core.StatusConfirmed:
				fmt.Printf("%s  tx=%s executedPrice=%s\n",
					green("%-9s", ev.Status), ev.TxHash, ev.ExecutedPrice)
			case core.StatusFailed:
				failures++
				fmt.Printf("%s  %s\n", red("%-9s", ev.Status), ev.Error)
			default:
				fmt.Printf("%s\n", cyan("%-9s", ev.Status))
			}

			if ev.Status == core.StatusConfirmed || failures == maxAttempts {
				if failures == maxAttempts {
					fmt.Println(red("order permanently failed after %d attempts", maxAttempts))
				}
				return
			}
		}
	}
}
