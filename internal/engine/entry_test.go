package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

func TestHandlePairCreatedPlacesEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	h.engine.HandlePairCreated(ctx, pair)

	intent, ok := h.intents.byPair(pair.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFindingExit, intent.Status)
	require.NotNil(t, intent.Entry)
	require.NotNil(t, intent.Vol)

	// Quote exec price is 1000 base per quote token, so the position's
	// entry price is its inverse.
	assert.InEpsilon(t, 0.001, *intent.Entry, 1e-9)

	// Sizing: min(max budget $100, 10% of $100k LP) / $300 per WBNB.
	require.Len(t, h.swapper.executed, 1)
	assert.InEpsilon(t, 100.0/300.0, h.swapper.executed[0].SellAmount, 1e-9)
	assert.InEpsilon(t, (100.0/300.0)*1000, *intent.Vol, 1e-9)

	require.Len(t, h.history.rows, 1)
	assert.Equal(t, "WBNB", h.history.rows[0].Sell)
	assert.Equal(t, "NEW", h.history.rows[0].Buy)
	assert.Equal(t, domain.TradeStatusSuccess, h.history.rows[0].Status)

	require.Equal(t, []string{domain.EventEntryCreated}, h.bus.channels)
	var ev domain.TradeEvent
	require.NoError(t, json.Unmarshal(h.bus.payloads[0], &ev))
	assert.Equal(t, pair.ID, ev.Pair.ID)
	assert.Equal(t, domain.StatusFindingExit, ev.Intent.Status)

	assert.True(t, h.tracker.Has(pair.ID))
}

func TestHandlePairCreatedIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	h.engine.HandlePairCreated(ctx, pair)
	h.engine.HandlePairCreated(ctx, pair)
	h.engine.HandlePairCreated(ctx, pair)

	assert.Equal(t, 1, h.intents.activeCount(pair.ID))
	assert.Len(t, h.swapper.executed, 1, "only the first event may trade")
}

func TestAtMostOneActiveIntentPerPair(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	// Block the first entry so the intent stays active in FindingEntry,
	// then fire more creation events.
	h.quoter.err = domain.ErrNoRoute
	h.engine.HandlePairCreated(ctx, pair)
	h.engine.HandlePairCreated(ctx, pair)
	h.engine.HandlePairUpdated(ctx, pair)

	assert.Equal(t, 1, h.intents.activeCount(pair.ID))
}

func TestEntryRejectsThinPool(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Safe LP threshold is $50k.
	thin := testPair()
	thin.LiquidityUSD = 49_999

	h.engine.HandlePairCreated(ctx, thin)

	intent, ok := h.intents.byPair(thin.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFindingEntry, intent.Status, "lock must be rolled back")
	assert.Empty(t, h.swapper.executed)

	// Same pool with enough liquidity trades on the next update.
	healthy := thin
	healthy.LiquidityUSD = 100_000
	h.engine.HandlePairUpdated(ctx, healthy)

	intent, _ = h.intents.byPair(thin.ID)
	assert.Equal(t, domain.StatusFindingExit, intent.Status)
	assert.Len(t, h.swapper.executed, 1)
}

func TestEntryRejectsHighPriceImpact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	h.quoter.impact = 5.01 // tolerance is 5%

	h.engine.HandlePairCreated(ctx, pair)

	intent, ok := h.intents.byPair(pair.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFindingEntry, intent.Status)
	assert.Empty(t, h.swapper.executed)
	assert.Empty(t, h.history.rows)
}

func TestEntrySkipsPairWithoutQuoteSide(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair := testPair()
	pair.Token1 = domain.Token{Address: "0xdead", Symbol: "ALSONEW", Decimals: 18}

	h.engine.HandlePairCreated(ctx, pair)

	intent, ok := h.intents.byPair(pair.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFindingEntry, intent.Status)
	assert.Empty(t, h.swapper.executed)
}

func TestEntrySkipsWhenBudgetWindowInfeasible(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Directive where the LP cap lands below the minimum budget: 0.01% of
	// $60k is $6 < $10 minimum.
	d := testDirective()
	d.MaxVolPercentOfLP = 0.01
	d.SafeLPSizeUSD = 100
	require.NoError(t, h.cache.Update(ctx, d))

	pair := testPair()
	pair.LiquidityUSD = 60_000
	h.engine.HandlePairCreated(ctx, pair)

	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusFindingEntry, intent.Status)
	assert.Empty(t, h.swapper.executed)
}

func TestEntryAbortsWithoutRiskDirective(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Fresh cache that never loaded a directive.
	h.cache = NewDirectiveCache(&memRiskStore{}, discardLogger())
	h.engine.directive = h.cache

	pair := testPair()
	h.engine.HandlePairCreated(ctx, pair)

	intent, ok := h.intents.byPair(pair.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFindingEntry, intent.Status)
	assert.Empty(t, h.swapper.executed)
}

func TestEntryRollsBackOnEveryFailurePath(t *testing.T) {
	ctx := context.Background()
	pair := testPair()

	cases := map[string]func(h *harness){
		"oracle has no price": func(h *harness) { h.oracle.prices = nil },
		"quote fails":         func(h *harness) { h.quoter.err = domain.ErrNoRoute },
		"swap fails":          func(h *harness) { h.swapper.err = errors.New("execution reverted") },
	}

	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			breakIt(h)

			h.engine.HandlePairCreated(ctx, pair)

			intent, ok := h.intents.byPair(pair.ID)
			require.True(t, ok)
			assert.Equal(t, domain.StatusFindingEntry, intent.Status,
				"lock must not be stranded in TakingEntry")
			assert.Empty(t, h.history.rows)
			assert.Empty(t, h.bus.channels)
		})
	}
}

func TestEntrySwapFailureAlertsOperator(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.swapper.err = errors.New("execution reverted")
	h.engine.HandlePairCreated(ctx, testPair())

	assert.Equal(t, []string{"entry swap failed"}, h.alerter.titles)
}

func TestUnsupportedExchangeIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair := testPair()
	pair.ExchangeID = "uniswapv2"
	pair.ID = domain.PairID(pair.Base, pair.Quote, 1, pair.ExchangeID)

	h.engine.HandlePairCreated(ctx, pair)

	_, ok := h.intents.byPair(pair.ID)
	assert.False(t, ok)
	assert.False(t, h.tracker.Has(pair.ID))
}

func TestScopeFiltersPairCreation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	h.scope.SetMode(ScopeSinglePair, "SOME_OTHER_PAIR")
	h.engine.HandlePairCreated(ctx, pair)

	_, ok := h.intents.byPair(pair.ID)
	assert.False(t, ok)
}
