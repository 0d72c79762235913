package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// TryEntry attempts a buy entry for the pair against the given pool
// snapshot. Safe to call on every update event: it returns silently when
// the pair is untracked, has no intent watching for an entry, or another
// decision holds the lock.
func (e *Engine) TryEntry(ctx context.Context, pair domain.Pair) {
	if !e.tracker.Has(pair.ID) {
		return
	}

	intent, err := e.lockIntent(ctx, domain.PurposeEntry, pair.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrStatusConflict) {
			e.logger.Error("entry lock failed", slog.String("pair", pair.ID), slog.String("error", err.Error()))
		}
		return
	}

	// Every failure below releases the lock; success converts it instead.
	if err := e.placeEntry(ctx, pair, intent); err != nil {
		e.unlock(ctx, domain.PurposeEntry, intent.ID)
		e.logDecisionOutcome(ctx, "entry skipped", pair, err)
	}
}

func (e *Engine) placeEntry(ctx context.Context, pair domain.Pair, intent domain.TradingIntent) error {
	directive, err := e.directive.Snapshot()
	if err != nil {
		return err
	}

	if pair.LiquidityUSD < directive.MinLiquidityUSD() {
		return fmt.Errorf("%w: pool $%.2f < $%.2f", domain.ErrLiquidityTooLow, pair.LiquidityUSD, directive.MinLiquidityUSD())
	}

	baseIdx, quoteIdx, err := pickSides(pair, e.registry)
	if err != nil {
		return err
	}
	baseToken, err := pair.Token(baseIdx)
	if err != nil {
		return err
	}
	quoteToken, err := pair.Token(quoteIdx)
	if err != nil {
		return err
	}

	quotePrice, err := e.oracle.PriceUSD(ctx, quoteToken.Symbol, quoteToken.Address)
	if err != nil {
		return fmt.Errorf("price %s: %w", quoteToken.Symbol, err)
	}

	sellAmount, err := maxTradableVolume(directive, pair.LiquidityUSD, quotePrice)
	if err != nil {
		return err
	}

	q, err := e.quoter.Quote(ctx, quoteToken, baseToken, sellAmount, slippageBps(directive))
	if err != nil {
		return err
	}
	if q.PriceImpactPercent > directive.SlippageTolerantPercent {
		return fmt.Errorf("%w: %.2f%% > %.2f%%", domain.ErrPriceImpactHigh, q.PriceImpactPercent, directive.SlippageTolerantPercent)
	}

	res, err := e.swapper.ExecuteSwap(ctx, q, swapOptions(directive))
	if err != nil {
		e.alert(ctx, "entry swap failed", fmt.Sprintf("%s: %v", pair.Name(), err))
		return fmt.Errorf("entry swap: %w", err)
	}

	e.settleEntry(ctx, pair, intent, q, res)
	return nil
}

// settleEntry records the executed entry: trade-history row, intent moved
// to exit watching with the realized entry price and acquired volume, and
// the entry event published. The swap already happened, so failures here
// are logged but never roll the intent back.
func (e *Engine) settleEntry(ctx context.Context, pair domain.Pair, intent domain.TradingIntent, q domain.Quote, res domain.SwapResult) {
	// Execution price is base per quote; the position's entry price is
	// quoted the other way around.
	entryPrice := 1 / q.ExecutionPrice
	received := q.SellAmount * q.ExecutionPrice

	trade := domain.TradeHistoryEntry{
		ID:                 uuid.NewString(),
		Sell:               q.SellToken.Symbol,
		Buy:                q.BuyToken.Symbol,
		SellAmount:         q.SellAmount,
		ReceivedAmount:     received,
		Price:              entryPrice,
		PriceImpactPercent: q.PriceImpactPercent,
		Duration:           res.Duration,
		Status:             domain.TradeStatusSuccess,
		Receipt:            res.Receipt,
		CreatedAt:          time.Now(),
	}
	if err := e.history.Insert(ctx, trade); err != nil {
		e.logger.Error("trade history insert failed",
			slog.String("pair", pair.ID),
			slog.String("tx", res.TxHash),
			slog.String("error", err.Error()),
		)
	}

	if err := e.intents.RecordEntry(ctx, intent.ID, entryPrice, received); err != nil {
		e.logger.Error("entry record failed, position held but intent not advanced",
			slog.String("intent", intent.ID),
			slog.String("pair", pair.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	intent.Status = domain.StatusFindingExit
	intent.Entry = &entryPrice
	intent.Vol = &received

	e.logger.Info("entry placed",
		slog.String("pair", pair.ID),
		slog.String("name", pair.Name()),
		slog.Float64("entry_price", entryPrice),
		slog.Float64("volume", received),
		slog.String("tx", res.TxHash),
	)
	e.publish(ctx, domain.EventEntryCreated, pair, trade, intent)
}

// logDecisionOutcome separates the expected skip reasons, which are routine
// at debug level, from real failures.
func (e *Engine) logDecisionOutcome(ctx context.Context, msg string, pair domain.Pair, err error) {
	attrs := []any{
		slog.String("pair", pair.ID),
		slog.String("reason", err.Error()),
	}
	switch {
	case errors.Is(err, domain.ErrTargetNotReached),
		errors.Is(err, domain.ErrNoQuoteSide),
		errors.Is(err, domain.ErrLiquidityTooLow),
		errors.Is(err, domain.ErrBudgetInfeasible),
		errors.Is(err, domain.ErrPriceImpactHigh),
		errors.Is(err, domain.ErrNoRoute),
		errors.Is(err, domain.ErrPriceUnavailable):
		e.logger.Debug(msg, attrs...)
	case errors.Is(err, domain.ErrDirectiveMissing):
		e.logger.Warn(msg, attrs...)
	default:
		e.logger.Error(msg, attrs...)
	}
}

func slippageBps(d domain.RiskDirective) int {
	return int(d.SlippageTolerantPercent * 100)
}

func swapOptions(d domain.RiskDirective) domain.SwapOptions {
	opts := domain.SwapOptions{}
	if d.FixedGasPriceGwei != nil {
		gwei := new(big.Float).SetFloat64(*d.FixedGasPriceGwei)
		wei, _ := new(big.Float).Mul(gwei, big.NewFloat(1e9)).Int(nil)
		opts.GasPrice = wei
	}
	return opts
}
