// Package store defines the best-effort audit persistence for submitted
// orders. One row is written at submission time; it is never read back by
// the execution path and a write failure never blocks or fails an order.
package store

import (
	"context"

	"github.com/erain9/routingo/pkg/core"
)

// OrderStore persists audit records for submitted orders
type OrderStore interface {
	// SaveOrder writes one audit row for a newly submitted order.
	// Writing the same identifier twice is a no-op.
	SaveOrder(ctx context.Context, order *core.Order) error

	// SetLastError records the final error of a permanently failed order.
	// Best-effort, like SaveOrder.
	SetLastError(ctx context.Context, orderID, message string) error

	Close() error
}

// NoopStore discards all writes. Used when no audit database is configured.
type NoopStore struct{}

// SaveOrder does nothing
func (NoopStore) SaveOrder(ctx context.Context, order *core.Order) error {
	return nil
}

// SetLastError does nothing
func (NoopStore) SetLastError(ctx context.Context, orderID, message string) error {
	return nil
}

// Close does nothing
func (NoopStore) Close() error {
	return nil
}

// Ensure NoopStore implements OrderStore
var _ OrderStore = NoopStore{}
