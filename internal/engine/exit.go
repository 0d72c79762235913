package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// TryTakeProfit attempts a take-profit exit: sell the held base volume if
// the current execution price has reached entry * tp_target.
func (e *Engine) TryTakeProfit(ctx context.Context, pair domain.Pair) {
	e.tryExit(ctx, domain.PurposeTakeProfit, pair)
}

// TryStopLoss attempts a stop-loss exit: sell the held base volume if the
// current execution price has fallen below entry * sl_target.
func (e *Engine) TryStopLoss(ctx context.Context, pair domain.Pair) {
	e.tryExit(ctx, domain.PurposeStopLoss, pair)
}

func (e *Engine) tryExit(ctx context.Context, purpose domain.TradePurpose, pair domain.Pair) {
	if !e.tracker.Has(pair.ID) {
		return
	}

	intent, err := e.lockIntent(ctx, purpose, pair.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrStatusConflict) {
			e.logger.Error("exit lock failed",
				slog.String("pair", pair.ID),
				slog.String("purpose", purpose.String()),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if err := e.placeExit(ctx, purpose, pair, intent); err != nil {
		e.unlock(ctx, purpose, intent.ID)
		e.logDecisionOutcome(ctx, purpose.String()+" skipped", pair, err)
	}
}

func (e *Engine) placeExit(ctx context.Context, purpose domain.TradePurpose, pair domain.Pair, intent domain.TradingIntent) error {
	if intent.Entry == nil || intent.Vol == nil || *intent.Entry <= 0 || *intent.Vol <= 0 {
		return fmt.Errorf("intent %s has no recorded entry position", intent.ID)
	}
	entry := *intent.Entry
	held := *intent.Vol

	directive, err := e.directive.Snapshot()
	if err != nil {
		return err
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

	// Same sizing bound as the entry, converted into base tokens at the
	// recorded entry price, and never more than the position actually holds.
	quoteVol, err := maxTradableVolume(directive, pair.LiquidityUSD, quotePrice)
	if err != nil {
		return err
	}
	sellVol := quoteVol / entry
	if sellVol > held {
		sellVol = held
	}

	// The recorded volume comes from the entry quote; a fill inside the
	// slippage tolerance or a transfer-taxed token leaves the wallet holding
	// less. The on-chain balance is the hard ceiling.
	bal, err := e.swapper.TokenBalance(ctx, baseToken)
	switch {
	case err != nil:
		e.logger.Warn("balance read failed, using recorded volume",
			slog.String("pair", pair.ID),
			slog.String("token", baseToken.Symbol),
			slog.String("error", err.Error()),
		)
	case bal <= 0:
		return fmt.Errorf("no spendable %s balance for intent %s", baseToken.Symbol, intent.ID)
	case bal < sellVol:
		sellVol = bal
	}

	q, err := e.quoter.Quote(ctx, baseToken, quoteToken, sellVol, slippageBps(directive))
	if err != nil {
		return err
	}

	if err := exitTargetReached(purpose, q.ExecutionPrice, entry, directive); err != nil {
		return err
	}
	// A stop-loss is never blocked on impact: staying in a collapsing pool
	// costs more than a bad fill.
	if purpose == domain.PurposeTakeProfit && q.PriceImpactPercent > directive.SlippageTolerantPercent {
		return fmt.Errorf("%w: %.2f%% > %.2f%%", domain.ErrPriceImpactHigh, q.PriceImpactPercent, directive.SlippageTolerantPercent)
	}

	res, err := e.swapper.ExecuteSwap(ctx, q, swapOptions(directive))
	if err != nil {
		e.alert(ctx, purpose.String()+" swap failed", fmt.Sprintf("%s: %v", pair.Name(), err))
		return fmt.Errorf("%s swap: %w", purpose, err)
	}

	e.settleExit(ctx, purpose, pair, intent, q, res, entry)
	return nil
}

// exitTargetReached gates the exit on the purpose's price condition.
func exitTargetReached(purpose domain.TradePurpose, execPrice, entry float64, d domain.RiskDirective) error {
	switch purpose {
	case domain.PurposeTakeProfit:
		if execPrice >= entry*d.TPTarget {
			return nil
		}
		return fmt.Errorf("%w: %.10f < %.10f", domain.ErrTargetNotReached, execPrice, entry*d.TPTarget)
	case domain.PurposeStopLoss:
		if execPrice < entry*d.SLTarget {
			return nil
		}
		return fmt.Errorf("%w: %.10f >= %.10f", domain.ErrTargetNotReached, execPrice, entry*d.SLTarget)
	default:
		return fmt.Errorf("purpose %s is not an exit", purpose)
	}
}

func (e *Engine) settleExit(ctx context.Context, purpose domain.TradePurpose, pair domain.Pair, intent domain.TradingIntent, q domain.Quote, res domain.SwapResult, entry float64) {
	exitPrice := q.ExecutionPrice
	received := q.SellAmount * exitPrice
	profitPercent := (exitPrice - entry) / entry * 100

	trade := domain.TradeHistoryEntry{
		ID:                 uuid.NewString(),
		Sell:               q.SellToken.Symbol,
		Buy:                q.BuyToken.Symbol,
		SellAmount:         q.SellAmount,
		ReceivedAmount:     received,
		Price:              exitPrice,
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

	terminal := purpose.Settled()
	if err := e.intents.RecordExit(ctx, intent.ID, terminal, exitPrice, profitPercent); err != nil {
		e.logger.Error("exit record failed",
			slog.String("intent", intent.ID),
			slog.String("pair", pair.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	intent.Status = terminal
	intent.ProfitPercent = &profitPercent
	switch purpose {
	case domain.PurposeTakeProfit:
		intent.TP = &exitPrice
	case domain.PurposeStopLoss:
		intent.SL = &exitPrice
	}

	e.tracker.Set(pair.ID, false)

	e.logger.Info("position closed",
		slog.String("pair", pair.ID),
		slog.String("name", pair.Name()),
		slog.String("outcome", purpose.String()),
		slog.Float64("entry_price", entry),
		slog.Float64("exit_price", exitPrice),
		slog.Float64("profit_percent", profitPercent),
		slog.String("tx", res.TxHash),
	)

	event := domain.EventTakeProfit
	if purpose == domain.PurposeStopLoss {
		event = domain.EventStopLoss
	}
	e.publish(ctx, event, pair, trade, intent)
	e.alert(ctx, "position closed",
		fmt.Sprintf("%s %s at %.10f (%+.2f%%)", pair.Name(), purpose, exitPrice, profitPercent))
}
