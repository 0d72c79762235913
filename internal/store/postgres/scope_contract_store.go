package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// ScopeContractStore implements domain.ScopeContractStore using PostgreSQL.
type ScopeContractStore struct {
	pool *pgxpool.Pool
}

// NewScopeContractStore creates a ScopeContractStore backed by the given pool.
func NewScopeContractStore(pool *pgxpool.Pool) *ScopeContractStore {
	return &ScopeContractStore{pool: pool}
}

// Add records a contract on the trading-scope allow-list. Duplicates are
// ignored.
func (s *ScopeContractStore) Add(ctx context.Context, contract string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scope_contracts (contract)
		VALUES ($1)
		ON CONFLICT (contract) DO NOTHING`, contract)
	if err != nil {
		return fmt.Errorf("postgres: add scope contract %s: %w", contract, err)
	}
	return nil
}

// Remove deletes a contract from the allow-list. Absent rows are ignored.
func (s *ScopeContractStore) Remove(ctx context.Context, contract string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM scope_contracts WHERE contract = $1`, contract)
	if err != nil {
		return fmt.Errorf("postgres: remove scope contract %s: %w", contract, err)
	}
	return nil
}

// List returns all persisted allow-listed contracts.
func (s *ScopeContractStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT contract FROM scope_contracts`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list scope contracts: %w", err)
	}
	defer rows.Close()

	var contracts []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("postgres: scan scope contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

var _ domain.ScopeContractStore = (*ScopeContractStore)(nil)
