package dex

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/erain9/routingo/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
)

// ErrUnknownSource is returned when a quote or execution targets a source
// the router is not configured for
var ErrUnknownSource = errors.New("unknown liquidity source")

// ErrSimulatedChain is the injected on-chain failure used by the mock router
var ErrSimulatedChain = errors.New("simulated-chain-error")

// sourceParams describes one simulated liquidity source
type sourceParams struct {
	name      string
	spreadLow float64
	spreadHi  float64
	fee       float64
	liquidity int
}

// MockConfig holds the simulation knobs for the mock router
type MockConfig struct {
	BasePrice   float64
	FailureRate float64
	QuoteMinLat time.Duration
	QuoteMaxLat time.Duration
	ExecMinLat  time.Duration
	ExecMaxLat  time.Duration
	// Seed of 0 means a time-derived seed
	Seed int64
}

// DefaultMockConfig returns the stock simulation parameters
func DefaultMockConfig() MockConfig {
	return MockConfig{
		BasePrice:   100,
		FailureRate: 0.08,
		QuoteMinLat: 150 * time.Millisecond,
		QuoteMaxLat: 350 * time.Millisecond,
		ExecMinLat:  2 * time.Second,
		ExecMaxLat:  3 * time.Second,
	}
}

// MockRouter simulates two competing liquidity sources with configurable
// latency and failure injection. It is safe for concurrent use.
type MockRouter struct {
	mu      sync.Mutex
	rng     *rand.Rand
	cfg     MockConfig
	sources []sourceParams
}

// NewMockRouter creates a mock router over the raydium and meteora
// simulated sources
func NewMockRouter(cfg MockConfig) *MockRouter {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &MockRouter{
		rng: rand.New(rand.NewSource(seed)),
		cfg: cfg,
		sources: []sourceParams{
			{name: "raydium", spreadLow: 0.98, spreadHi: 1.02, fee: 0.003, liquidity: 100000},
			{name: "meteora", spreadLow: 0.97, spreadHi: 1.02, fee: 0.002, liquidity: 80000},
		},
	}
}

// Sources returns the simulated source names in priority order
func (r *MockRouter) Sources() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.name)
	}
	return names
}

// Quote returns a randomized priced offer from the named source
func (r *MockRouter) Quote(ctx context.Context, source, tokenIn, tokenOut string, amountIn fpdecimal.Decimal) (core.Quote, error) {
	params, err := r.lookup(source)
	if err != nil {
		return core.Quote{}, err
	}

	if err := r.sleep(ctx, r.cfg.QuoteMinLat, r.cfg.QuoteMaxLat); err != nil {
		return core.Quote{}, err
	}

	price := r.cfg.BasePrice * (params.spreadLow + r.random()*(params.spreadHi-params.spreadLow))

	return core.Quote{
		Source:    params.name,
		Price:     fpdecimal.FromFloat(price),
		Fee:       fpdecimal.FromFloat(params.fee),
		Liquidity: fpdecimal.FromInt(params.liquidity),
	}, nil
}

// Execute performs a simulated trade on the named source. A configurable
// fraction of executions fails with ErrSimulatedChain.
func (r *MockRouter) Execute(ctx context.Context, source string, order *core.Order) (core.ExecResult, error) {
	if _, err := r.lookup(source); err != nil {
		return core.ExecResult{}, err
	}

	if err := r.sleep(ctx, r.cfg.ExecMinLat, r.cfg.ExecMaxLat); err != nil {
		return core.ExecResult{}, err
	}

	if r.random() < r.cfg.FailureRate {
		return core.ExecResult{}, ErrSimulatedChain
	}

	executedPrice := r.cfg.BasePrice * (0.98 + r.random()*0.04)

	return core.ExecResult{
		TxHash:        "MOCKTX_" + strconv.FormatInt(time.Now().UnixMilli(), 36),
		ExecutedPrice: fpdecimal.FromFloat(executedPrice),
	}, nil
}

func (r *MockRouter) lookup(source string) (sourceParams, error) {
	for _, s := range r.sources {
		if s.name == source {
			return s, nil
		}
	}
	return sourceParams{}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
}

func (r *MockRouter) random() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// sleep waits a random duration between min and max, or until the context
// is canceled
func (r *MockRouter) sleep(ctx context.Context, min, max time.Duration) error {
	if max <= 0 {
		return ctx.Err()
	}

	d := min
	if max > min {
		d += time.Duration(r.random() * float64(max-min))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ensure MockRouter implements Router
var _ Router = (*MockRouter)(nil)
