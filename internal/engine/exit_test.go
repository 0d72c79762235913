package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// enterAt drives a successful entry with the given execution price so the
// intent lands in FindingExit with entry = 1/execPrice.
func enterAt(t *testing.T, h *harness, pair domain.Pair, entryExecPrice float64) domain.TradingIntent {
	t.Helper()
	h.quoter.execPrice = entryExecPrice
	h.engine.HandlePairCreated(context.Background(), pair)

	intent, ok := h.intents.byPair(pair.ID)
	require.True(t, ok)
	require.Equal(t, domain.StatusFindingExit, intent.Status)
	return intent
}

func TestTakeProfitAtTarget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	enterAt(t, h, pair, 1.0) // entry price 1.0 quote per base
	h.quoter.execPrice = 2.5 // tp target is 2x

	h.engine.TryTakeProfit(ctx, pair)

	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusTP, intent.Status)
	require.NotNil(t, intent.TP)
	assert.InEpsilon(t, 2.5, *intent.TP, 1e-9)

	// entry 1.0, exit 2.5 -> +150%
	require.NotNil(t, intent.ProfitPercent)
	assert.InEpsilon(t, 150.0, *intent.ProfitPercent, 1e-9)

	assert.False(t, h.tracker.Has(pair.ID), "closed pair must leave the active set")
	assert.Contains(t, h.bus.channels, domain.EventTakeProfit)
}

func TestTakeProfitBelowTargetRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	enterAt(t, h, pair, 1.0)
	h.quoter.execPrice = 1.99 // just under the 2x target

	h.engine.TryTakeProfit(ctx, pair)

	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusFindingExit, intent.Status, "target miss is a normal rollback")
	assert.Len(t, h.swapper.executed, 1, "no exit swap executed")
	assert.True(t, h.tracker.Has(pair.ID))
}

func TestStopLossBelowTarget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	enterAt(t, h, pair, 1.0)
	h.quoter.execPrice = 0.49 // sl target is 0.5x

	h.engine.TryStopLoss(ctx, pair)

	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusSL, intent.Status)
	require.NotNil(t, intent.SL)
	assert.InEpsilon(t, 0.49, *intent.SL, 1e-9)
	require.NotNil(t, intent.ProfitPercent)
	assert.InEpsilon(t, -51.0, *intent.ProfitPercent, 1e-9)
	assert.Contains(t, h.bus.channels, domain.EventStopLoss)
}

func TestStopLossAtBoundaryHolds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	enterAt(t, h, pair, 1.0)
	h.quoter.execPrice = 0.5 // exactly the boundary: strict < required

	h.engine.TryStopLoss(ctx, pair)

	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusFindingExit, intent.Status)
}

func TestExitVolumeNeverExceedsHeldPosition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	intent := enterAt(t, h, pair, 1000) // large exec price -> small held volume? no: vol = sell*1000
	held := *intent.Vol

	h.quoter.execPrice = 0.005 // quote per base, far above entry 0.001 * 2

	h.engine.TryTakeProfit(ctx, pair)

	require.Len(t, h.swapper.executed, 2)
	exitSwap := h.swapper.executed[1]
	assert.LessOrEqual(t, exitSwap.SellAmount, held)
	assert.Equal(t, "NEW", exitSwap.SellToken.Symbol)
	assert.Equal(t, "WBNB", exitSwap.BuyToken.Symbol)
}

func TestExitCappedByOnChainBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	intent := enterAt(t, h, pair, 1.0)
	held := *intent.Vol

	// A fill inside the slippage tolerance left the wallet holding less
	// than the recorded volume.
	onChain := held * 0.97
	h.swapper.balance = &onChain
	h.quoter.execPrice = 2.5

	h.engine.TryTakeProfit(ctx, pair)

	require.Len(t, h.swapper.executed, 2)
	assert.InEpsilon(t, onChain, h.swapper.executed[1].SellAmount, 1e-9)
}

func TestExitBalanceReadFailureUsesRecordedVolume(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	intent := enterAt(t, h, pair, 1.0)
	held := *intent.Vol
	h.swapper.balanceErr = errors.New("rpc unavailable")
	h.quoter.execPrice = 2.5

	h.engine.TryTakeProfit(ctx, pair)

	require.Len(t, h.swapper.executed, 2)
	assert.InEpsilon(t, held, h.swapper.executed[1].SellAmount, 1e-9)
}

func TestExitWithZeroBalanceRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	enterAt(t, h, pair, 1.0)
	zero := 0.0
	h.swapper.balance = &zero
	h.quoter.execPrice = 2.5

	h.engine.TryTakeProfit(ctx, pair)

	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusFindingExit, intent.Status)
	assert.Len(t, h.swapper.executed, 1, "only the entry swap ran")
}

func TestExitSwapFailureRollsBackAndAlerts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	enterAt(t, h, pair, 1.0)
	h.quoter.execPrice = 3.0
	h.swapper.err = errors.New("execution reverted")

	h.engine.TryTakeProfit(ctx, pair)

	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusFindingExit, intent.Status)
	assert.Contains(t, h.alerter.titles, "tp swap failed")
	assert.True(t, h.tracker.Has(pair.ID))
}

func TestStopLossIgnoresPriceImpact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	enterAt(t, h, pair, 1.0)
	h.quoter.execPrice = 0.3
	h.quoter.impact = 42 // way past tolerance; stop-loss must still fire

	h.engine.TryStopLoss(ctx, pair)

	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusSL, intent.Status)
}

func TestTakeProfitBlockedByPriceImpact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	enterAt(t, h, pair, 1.0)
	h.quoter.execPrice = 3.0
	h.quoter.impact = 5.01

	h.engine.TryTakeProfit(ctx, pair)

	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusFindingExit, intent.Status)
}

func TestExitWithoutPositionDataRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	// Intent in FindingExit but with no recorded entry/volume.
	bad := domain.TradingIntent{ID: "bad", PairID: pair.ID, Status: domain.StatusFindingExit}
	h.intents.byID[bad.ID] = &bad
	h.tracker.Set(pair.ID, true)

	h.engine.TryTakeProfit(ctx, pair)

	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusFindingExit, intent.Status)
	assert.Empty(t, h.swapper.executed)
}

func TestConcurrentExitAttemptsOnlyOneWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	enterAt(t, h, pair, 1.0)
	h.quoter.execPrice = 2.5

	// First attempt settles the intent terminally; the second finds no
	// FindingExit intent and does nothing.
	h.engine.TryTakeProfit(ctx, pair)
	h.engine.TryTakeProfit(ctx, pair)
	h.engine.TryStopLoss(ctx, pair)

	assert.Len(t, h.swapper.executed, 2, "one entry swap and one exit swap")
	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusTP, intent.Status)
}

func TestPairUpdateDrivesFullLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := testPair()

	// Discovery trades the entry at exec price 1000 (entry 0.001).
	h.engine.HandlePairCreated(ctx, pair)

	// Later update with the price doubled triggers the take-profit.
	h.quoter.execPrice = 0.0021
	h.engine.HandlePairUpdated(ctx, pair)

	intent, _ := h.intents.byPair(pair.ID)
	assert.Equal(t, domain.StatusTP, intent.Status)
	assert.Equal(t, []string{domain.EventEntryCreated, domain.EventTakeProfit}, h.bus.channels)
}
