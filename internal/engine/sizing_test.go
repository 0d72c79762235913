package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

func TestMaxTradableVolumeUsesMaxBudget(t *testing.T) {
	d := testDirective() // min $10, max $100, 10% of LP

	// Deep pool: the $100 budget is the binding constraint.
	vol, err := maxTradableVolume(d, 1_000_000, 300)
	require.NoError(t, err)
	assert.InEpsilon(t, 100.0/300.0, vol, 1e-9)
}

func TestMaxTradableVolumeCappedByLiquidity(t *testing.T) {
	d := testDirective()

	// 10% of a $500 pool is $50, under the $100 budget.
	vol, err := maxTradableVolume(d, 500, 1)
	require.NoError(t, err)
	assert.InEpsilon(t, 50, vol, 1e-9)
}

func TestMaxTradableVolumeInfeasibleWindow(t *testing.T) {
	d := testDirective()

	// 10% of a $50 pool is $5, below the $10 minimum budget.
	_, err := maxTradableVolume(d, 50, 1)
	assert.ErrorIs(t, err, domain.ErrBudgetInfeasible)
}

func TestMaxTradableVolumeRejectsBadPrice(t *testing.T) {
	d := testDirective()

	for _, price := range []float64{0, -1} {
		_, err := maxTradableVolume(d, 1_000_000, price)
		assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
	}
}

func TestMinLiquidityGuardValues(t *testing.T) {
	// safe size dominates: max($100k, $10*10) = $100k
	d := domain.RiskDirective{MinPairBudgetUSD: 10, SafeLPSizeUSD: 100_000}
	assert.Equal(t, 100_000.0, d.MinLiquidityUSD())

	// min budget dominates: max($1k, $500*10) = $5k
	d = domain.RiskDirective{MinPairBudgetUSD: 500, SafeLPSizeUSD: 1_000}
	assert.Equal(t, 5_000.0, d.MinLiquidityUSD())
}

func TestLiquidityGuardAcceptsAtThreshold(t *testing.T) {
	// A $100k safe threshold rejects a $50k pool and accepts $100k.
	h := newHarness(t)
	d := testDirective()
	d.SafeLPSizeUSD = 100_000
	require.NoError(t, h.cache.Update(t.Context(), d))

	pair := testPair()
	pair.LiquidityUSD = 50_000
	h.engine.HandlePairCreated(t.Context(), pair)
	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusFindingEntry, intent.Status)

	pair.LiquidityUSD = 100_000
	h.engine.HandlePairUpdated(t.Context(), pair)
	intent, _ = h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusFindingExit, intent.Status)
}
