package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// QuoteSymbolStore implements domain.QuoteSymbolStore using PostgreSQL.
type QuoteSymbolStore struct {
	pool *pgxpool.Pool
}

// NewQuoteSymbolStore creates a QuoteSymbolStore backed by the given pool.
func NewQuoteSymbolStore(pool *pgxpool.Pool) *QuoteSymbolStore {
	return &QuoteSymbolStore{pool: pool}
}

// List returns the persisted quote-token allow-list.
func (s *QuoteSymbolStore) List(ctx context.Context) ([]domain.QuoteSymbol, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT symbol, address, decimals, is_stable, binance_symbol
		FROM quote_symbols ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list quote symbols: %w", err)
	}
	defer rows.Close()

	var symbols []domain.QuoteSymbol
	for rows.Next() {
		var q domain.QuoteSymbol
		if err := rows.Scan(&q.Symbol, &q.Address, &q.Decimals, &q.IsStable, &q.BinanceSymbol); err != nil {
			return nil, fmt.Errorf("postgres: scan quote symbol: %w", err)
		}
		symbols = append(symbols, q)
	}
	return symbols, rows.Err()
}

// Replace atomically swaps the entire allow-list for the given set.
func (s *QuoteSymbolStore) Replace(ctx context.Context, symbols []domain.QuoteSymbol) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: replace quote symbols: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM quote_symbols`); err != nil {
		return fmt.Errorf("postgres: replace quote symbols: clear: %w", err)
	}

	for _, q := range symbols {
		_, err := tx.Exec(ctx, `
			INSERT INTO quote_symbols (symbol, address, decimals, is_stable, binance_symbol)
			VALUES ($1, $2, $3, $4, $5)`,
			q.Symbol, q.Address, q.Decimals, q.IsStable, q.BinanceSymbol,
		)
		if err != nil {
			return fmt.Errorf("postgres: replace quote symbols: insert %s: %w", q.Symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: replace quote symbols: commit: %w", err)
	}
	return nil
}

var _ domain.QuoteSymbolStore = (*QuoteSymbolStore)(nil)
