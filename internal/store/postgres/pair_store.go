package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint
// failure.
const uniqueViolation = "23505"

// PairStore implements domain.PairStore using PostgreSQL.
type PairStore struct {
	pool *pgxpool.Pool
}

// NewPairStore creates a PairStore backed by the given connection pool.
func NewPairStore(pool *pgxpool.Pool) *PairStore {
	return &PairStore{pool: pool}
}

const pairSelectCols = `id, base, quote, chain_id, exchange_id, address,
	token0_address, token0_symbol, token0_name, token0_decimals,
	token1_address, token1_symbol, token1_name, token1_decimals,
	reserve0, reserve1, liquidity_usd,
	initial_reserve0, initial_reserve1, initial_liquidity_usd,
	created_at, reserve_updated_at`

func scanPairRow(row pgx.Row) (domain.Pair, error) {
	var p domain.Pair
	err := row.Scan(
		&p.ID, &p.Base, &p.Quote, &p.ChainID, &p.ExchangeID, &p.Address,
		&p.Token0.Address, &p.Token0.Symbol, &p.Token0.Name, &p.Token0.Decimals,
		&p.Token1.Address, &p.Token1.Symbol, &p.Token1.Name, &p.Token1.Decimals,
		&p.Reserve0, &p.Reserve1, &p.LiquidityUSD,
		&p.InitialReserve0, &p.InitialReserve1, &p.InitialLiquidityUSD,
		&p.CreatedAt, &p.ReserveUpdatedAt,
	)
	return p, err
}

// Create inserts a new pair. Returns domain.ErrAlreadyExists for a duplicate
// pair ID so duplicate pool-creation events stay benign.
func (s *PairStore) Create(ctx context.Context, p domain.Pair) error {
	const query = `
		INSERT INTO pairs (
			id, base, quote, chain_id, exchange_id, address,
			token0_address, token0_symbol, token0_name, token0_decimals,
			token1_address, token1_symbol, token1_name, token1_decimals,
			reserve0, reserve1, liquidity_usd,
			initial_reserve0, initial_reserve1, initial_liquidity_usd,
			created_at, reserve_updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17,
			$18, $19, $20,
			NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Base, p.Quote, p.ChainID, p.ExchangeID, p.Address,
		p.Token0.Address, p.Token0.Symbol, p.Token0.Name, p.Token0.Decimals,
		p.Token1.Address, p.Token1.Symbol, p.Token1.Name, p.Token1.Decimals,
		p.Reserve0, p.Reserve1, p.LiquidityUSD,
		p.InitialReserve0, p.InitialReserve1, p.InitialLiquidityUSD,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create pair %s: %w", p.ID, err)
	}
	return nil
}

// Update overwrites the mutable reserve/liquidity fields of a pair.
func (s *PairStore) Update(ctx context.Context, p domain.Pair) error {
	const query = `
		UPDATE pairs SET
			reserve0           = $2,
			reserve1           = $3,
			liquidity_usd      = $4,
			reserve_updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, p.ID, p.Reserve0, p.Reserve1, p.LiquidityUSD)
	if err != nil {
		return fmt.Errorf("postgres: update pair %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a single pair.
func (s *PairStore) GetByID(ctx context.Context, id string) (domain.Pair, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pairSelectCols+` FROM pairs WHERE id = $1`, id)

	p, err := scanPairRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pair{}, domain.ErrNotFound
		}
		return domain.Pair{}, fmt.Errorf("postgres: get pair %s: %w", id, err)
	}
	return p, nil
}

var _ domain.PairStore = (*PairStore)(nil)
