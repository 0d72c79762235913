package domain

import "time"

// RiskDirective is the deployment-wide risk and sizing configuration. It is
// read-mostly: the engine snapshots it once per decision and never re-reads
// it mid-decision.
type RiskDirective struct {
	MinPairBudgetUSD        float64
	MaxPairBudgetUSD        float64
	MaxVolPercentOfLP       float64 // trade volume may not exceed this % of pool liquidity
	SafeLPSizeUSD           float64 // below this the pool is treated as a likely rug
	SlippageTolerantPercent float64
	TPTarget                float64  // take-profit multiplier, > 1
	SLTarget                float64  // stop-loss multiplier, < 1
	FixedGasPriceGwei       *float64 // optional gas price override for swaps
	UpdatedAt               time.Time
}

// MinLiquidityUSD is the entry liquidity guard: the pool must hold at least
// the safe size, and at least 10x the minimum budget so the smallest allowed
// trade stays within 10% of the pool.
func (d RiskDirective) MinLiquidityUSD() float64 {
	byMinTrade := d.MinPairBudgetUSD * 10
	if d.SafeLPSizeUSD > byMinTrade {
		return d.SafeLPSizeUSD
	}
	return byMinTrade
}
