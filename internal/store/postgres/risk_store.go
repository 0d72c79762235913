package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// RiskDirectiveStore implements domain.RiskDirectiveStore. The directive is
// a singleton row keyed by a constant-true boolean primary key.
type RiskDirectiveStore struct {
	pool *pgxpool.Pool
}

// NewRiskDirectiveStore creates a RiskDirectiveStore backed by the given pool.
func NewRiskDirectiveStore(pool *pgxpool.Pool) *RiskDirectiveStore {
	return &RiskDirectiveStore{pool: pool}
}

// Get returns the current directive, or domain.ErrNotFound when none has
// been configured yet.
func (s *RiskDirectiveStore) Get(ctx context.Context) (domain.RiskDirective, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT min_pair_budget_usd, max_pair_budget_usd, max_vol_percent_of_lp,
		       safe_lp_size_usd, slippage_tolerant_percent,
		       tp_target, sl_target, fixed_gas_price_gwei, updated_at
		FROM risk_directives WHERE id = TRUE`)

	var d domain.RiskDirective
	err := row.Scan(
		&d.MinPairBudgetUSD, &d.MaxPairBudgetUSD, &d.MaxVolPercentOfLP,
		&d.SafeLPSizeUSD, &d.SlippageTolerantPercent,
		&d.TPTarget, &d.SLTarget, &d.FixedGasPriceGwei, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RiskDirective{}, domain.ErrNotFound
		}
		return domain.RiskDirective{}, fmt.Errorf("postgres: get risk directive: %w", err)
	}
	return d, nil
}

// Upsert creates or replaces the singleton directive row.
func (s *RiskDirectiveStore) Upsert(ctx context.Context, d domain.RiskDirective) error {
	const query = `
		INSERT INTO risk_directives (
			id, min_pair_budget_usd, max_pair_budget_usd, max_vol_percent_of_lp,
			safe_lp_size_usd, slippage_tolerant_percent,
			tp_target, sl_target, fixed_gas_price_gwei, updated_at
		) VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			min_pair_budget_usd       = EXCLUDED.min_pair_budget_usd,
			max_pair_budget_usd       = EXCLUDED.max_pair_budget_usd,
			max_vol_percent_of_lp     = EXCLUDED.max_vol_percent_of_lp,
			safe_lp_size_usd          = EXCLUDED.safe_lp_size_usd,
			slippage_tolerant_percent = EXCLUDED.slippage_tolerant_percent,
			tp_target                 = EXCLUDED.tp_target,
			sl_target                 = EXCLUDED.sl_target,
			fixed_gas_price_gwei      = EXCLUDED.fixed_gas_price_gwei,
			updated_at                = NOW()`

	_, err := s.pool.Exec(ctx, query,
		d.MinPairBudgetUSD, d.MaxPairBudgetUSD, d.MaxVolPercentOfLP,
		d.SafeLPSizeUSD, d.SlippageTolerantPercent,
		d.TPTarget, d.SLTarget, d.FixedGasPriceGwei,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert risk directive: %w", err)
	}
	return nil
}

var _ domain.RiskDirectiveStore = (*RiskDirectiveStore)(nil)
