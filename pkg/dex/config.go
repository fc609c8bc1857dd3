package dex

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadMockConfig loads the mock router simulation knobs from environment
// variables, falling back to the stock defaults
func LoadMockConfig() (*MockConfig, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("MOCK_BASE_PRICE", 100.0)
	v.SetDefault("MOCK_FAILURE_RATE", 0.08)
	v.SetDefault("MOCK_QUOTE_MIN_LATENCY_MS", 150)
	v.SetDefault("MOCK_QUOTE_MAX_LATENCY_MS", 350)
	v.SetDefault("MOCK_EXEC_MIN_LATENCY_MS", 2000)
	v.SetDefault("MOCK_EXEC_MAX_LATENCY_MS", 3000)
	v.SetDefault("MOCK_SEED", 0)

	// Allow environment variables
	v.AutomaticEnv()

	cfg := &MockConfig{
		BasePrice:   v.GetFloat64("MOCK_BASE_PRICE"),
		FailureRate: v.GetFloat64("MOCK_FAILURE_RATE"),
		QuoteMinLat: time.Duration(v.GetInt("MOCK_QUOTE_MIN_LATENCY_MS")) * time.Millisecond,
		QuoteMaxLat: time.Duration(v.GetInt("MOCK_QUOTE_MAX_LATENCY_MS")) * time.Millisecond,
		ExecMinLat:  time.Duration(v.GetInt("MOCK_EXEC_MIN_LATENCY_MS")) * time.Millisecond,
		ExecMaxLat:  time.Duration(v.GetInt("MOCK_EXEC_MAX_LATENCY_MS")) * time.Millisecond,
		Seed:        v.GetInt64("MOCK_SEED"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the simulation parameters for consistency
func (c *MockConfig) Validate() error {
	if c.BasePrice <= 0 {
		return fmt.Errorf("base price must be positive, got %v", c.BasePrice)
	}
	if c.FailureRate < 0 || c.FailureRate > 1 {
		return fmt.Errorf("failure rate must be within [0, 1], got %v", c.FailureRate)
	}
	if c.QuoteMaxLat < c.QuoteMinLat {
		return fmt.Errorf("quote latency range is inverted: %v > %v", c.QuoteMinLat, c.QuoteMaxLat)
	}
	if c.ExecMaxLat < c.ExecMinLat {
		return fmt.Errorf("exec latency range is inverted: %v > %v", c.ExecMinLat, c.ExecMaxLat)
	}
	return nil
}
