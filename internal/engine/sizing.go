package engine

import (
	"github.com/sniperlabs/dexsniper/internal/domain"
)

// maxTradableVolume sizes a swap in quote tokens: spend the configured max
// budget, but never more than the allowed percentage of pool liquidity.
// When the liquidity cap pushes the spend below the minimum budget there is
// no valid size window and ErrBudgetInfeasible is returned.
func maxTradableVolume(d domain.RiskDirective, liquidityUSD, quotePriceUSD float64) (float64, error) {
	if quotePriceUSD <= 0 {
		return 0, domain.ErrPriceUnavailable
	}

	budgetUSD := d.MaxPairBudgetUSD
	if lpCap := liquidityUSD * d.MaxVolPercentOfLP / 100; lpCap < budgetUSD {
		budgetUSD = lpCap
	}
	if budgetUSD < d.MinPairBudgetUSD {
		return 0, domain.ErrBudgetInfeasible
	}

	return budgetUSD / quotePriceUSD, nil
}
