// Package sqlite implements the audit order store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/erain9/routingo/pkg/core"
	"github.com/erain9/routingo/pkg/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	token_in   TEXT NOT NULL,
	token_out  TEXT NOT NULL,
	amount_in  TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	last_error TEXT
);
`

// Store persists order audit rows in SQLite
type Store struct {
	db *sql.DB
}

// NewStore opens (and migrates) the audit database at the given path.
// An empty path uses an in-memory database.
func NewStore(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		dsn = path
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate audit schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveOrder writes one audit row. The status column is written once at
// submission and is not kept in sync with live status events.
func (s *Store) SaveOrder(ctx context.Context, order *core.Order) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO orders(id, user_id, type, token_in, token_out, amount_in, status, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID(),
		order.UserID(),
		string(order.OrderType()),
		order.TokenIn(),
		order.TokenOut(),
		order.AmountIn().String(),
		string(core.StatusPending),
		order.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit row: %w", err)
	}
	return nil
}

// SetLastError records the final error of a permanently failed order
func (s *Store) SetLastError(ctx context.Context, orderID, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET last_error = ? WHERE id = ?`, message, orderID)
	if err != nil {
		return fmt.Errorf("failed to update last error: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure Store implements OrderStore
var _ store.OrderStore = (*Store)(nil)
