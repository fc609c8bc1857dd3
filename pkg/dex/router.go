// Package dex defines the contract between the execution pipeline and the
// liquidity sources it routes between. Real exchange integrations live
// outside this repository; the pipeline only consumes this interface.
package dex

import (
	"context"

	"github.com/erain9/routingo/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
)

// Router provides price quotes and trade execution against a fixed set of
// competing liquidity sources. Both operations are fallible and may take
// arbitrarily long; callers bound them with the context.
type Router interface {
	// Sources returns the configured source names in priority order.
	// The first listed source wins quote ties.
	Sources() []string

	// Quote returns a priced offer from the named source
	Quote(ctx context.Context, source, tokenIn, tokenOut string, amountIn fpdecimal.Decimal) (core.Quote, error)

	// Execute performs the trade on the named source
	Execute(ctx context.Context, source string, order *core.Order) (core.ExecResult, error)
}

// BestQuote picks the winner between two quotes: the strictly lower price
// wins. On equal prices a wins, so callers passing quotes in Sources()
// order get the first-listed source deterministically.
func BestQuote(a, b core.Quote) core.Quote {
	if b.Price.LessThan(a.Price) {
		return b
	}
	return a
}
