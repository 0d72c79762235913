package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

func durationFromMillis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// TradeHistoryStore implements domain.TradeHistoryStore using PostgreSQL.
type TradeHistoryStore struct {
	pool *pgxpool.Pool
}

// NewTradeHistoryStore creates a TradeHistoryStore backed by the given pool.
func NewTradeHistoryStore(pool *pgxpool.Pool) *TradeHistoryStore {
	return &TradeHistoryStore{pool: pool}
}

// Insert appends one swap audit row.
func (s *TradeHistoryStore) Insert(ctx context.Context, t domain.TradeHistoryEntry) error {
	const query = `
		INSERT INTO trade_history (
			id, sell, buy, sell_amount, received_amount, price,
			price_impact_percent, duration_ms, status, receipt, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.Sell, t.Buy, t.SellAmount, t.ReceivedAmount, t.Price,
		t.PriceImpactPercent, t.Duration.Milliseconds(), string(t.Status),
		t.Receipt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade history %s: %w", t.ID, err)
	}
	return nil
}

// ListRecent returns the most recent trades, newest first.
func (s *TradeHistoryStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, sell, buy, sell_amount, received_amount, price,
		       price_impact_percent, duration_ms, status, receipt, created_at
		FROM trade_history
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trade history: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeHistoryEntry
	for rows.Next() {
		var t domain.TradeHistoryEntry
		var status string
		var durationMs int64
		if err := rows.Scan(
			&t.ID, &t.Sell, &t.Buy, &t.SellAmount, &t.ReceivedAmount, &t.Price,
			&t.PriceImpactPercent, &durationMs, &status, &t.Receipt, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade history: %w", err)
		}
		t.Status = domain.TradeStatus(status)
		t.Duration = durationFromMillis(durationMs)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListBefore returns all trades created strictly before the cutoff, oldest
// first. Used by the archiver.
func (s *TradeHistoryStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sell, buy, sell_amount, received_amount, price,
		       price_impact_percent, duration_ms, status, receipt, created_at
		FROM trade_history
		WHERE created_at < $1
		ORDER BY created_at`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trade history before %s: %w", before, err)
	}
	defer rows.Close()

	var trades []domain.TradeHistoryEntry
	for rows.Next() {
		var t domain.TradeHistoryEntry
		var status string
		var durationMs int64
		if err := rows.Scan(
			&t.ID, &t.Sell, &t.Buy, &t.SellAmount, &t.ReceivedAmount, &t.Price,
			&t.PriceImpactPercent, &durationMs, &status, &t.Receipt, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade history: %w", err)
		}
		t.Status = domain.TradeStatus(status)
		t.Duration = durationFromMillis(durationMs)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

var _ domain.TradeHistoryStore = (*TradeHistoryStore)(nil)
