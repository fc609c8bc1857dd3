package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/erain9/routingo/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	s, err := NewStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	order := core.NewMarketOrder("order-1", "user-1", "SOL", "USDC", fpdecimal.FromFloat(10.0))
	require.NoError(t, s.SaveOrder(ctx, order))

	var status, amount string
	err := s.db.QueryRowContext(ctx,
		`SELECT status, amount_in FROM orders WHERE id = ?`, "order-1").
		Scan(&status, &amount)
	require.NoError(t, err)
	assert.Equal(t, "pending", status)

	parsed, err := fpdecimal.FromString(amount)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(fpdecimal.FromFloat(10.0)))
}

func TestSaveOrderIgnoresDuplicate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := core.NewMarketOrder("order-1", "user-1", "SOL", "USDC", fpdecimal.FromFloat(10.0))
	require.NoError(t, s.SaveOrder(ctx, first))

	// Re-submission with the same id must not overwrite the original row
	second := core.NewMarketOrder("order-1", "user-2", "ETH", "USDT", fpdecimal.FromFloat(1.0))
	require.NoError(t, s.SaveOrder(ctx, second))

	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM orders WHERE id = ?`, "order-1").Scan(&userID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestSetLastError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	order := core.NewMarketOrder("order-1", "user-1", "SOL", "USDC", fpdecimal.FromFloat(10.0))
	require.NoError(t, s.SaveOrder(ctx, order))
	require.NoError(t, s.SetLastError(ctx, "order-1", "simulated-chain-error"))

	var lastError string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_error FROM orders WHERE id = ?`, "order-1").Scan(&lastError)
	require.NoError(t, err)
	assert.Equal(t, "simulated-chain-error", lastError)
}

func TestSetLastErrorUnknownOrder(t *testing.T) {
	s := newStore(t)

	// Updating a row that was never written is still not an error
	assert.NoError(t, s.SetLastError(context.Background(), "missing", "boom"))
}
