package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// ActivePairStore implements domain.ActivePairStore. It is the durability
// aid behind the in-memory active pair set: writes are issued
// fire-and-forget by the tracker, so both Add and Remove are idempotent.
type ActivePairStore struct {
	pool *pgxpool.Pool
}

// NewActivePairStore creates an ActivePairStore backed by the given pool.
func NewActivePairStore(pool *pgxpool.Pool) *ActivePairStore {
	return &ActivePairStore{pool: pool}
}

// Add records a pair as actively tracked. Duplicate rows are ignored.
func (s *ActivePairStore) Add(ctx context.Context, pairID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO active_trading_pairs (pair_id)
		VALUES ($1)
		ON CONFLICT (pair_id) DO NOTHING`, pairID)
	if err != nil {
		return fmt.Errorf("postgres: add active pair %s: %w", pairID, err)
	}
	return nil
}

// Remove deletes a pair from the tracked set. Absent rows are ignored.
func (s *ActivePairStore) Remove(ctx context.Context, pairID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM active_trading_pairs WHERE pair_id = $1`, pairID)
	if err != nil {
		return fmt.Errorf("postgres: remove active pair %s: %w", pairID, err)
	}
	return nil
}

// List returns all persisted active pair IDs.
func (s *ActivePairStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT pair_id FROM active_trading_pairs`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active pairs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan active pair: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ domain.ActivePairStore = (*ActivePairStore)(nil)
