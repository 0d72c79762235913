package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// supportedExchange is the only exchange the quoter and executor speak.
const supportedExchange = "pancakev2"

// Alerter pushes operator notifications. Alerts are fire-and-forget; they
// never influence a trading decision.
type Alerter interface {
	Alert(ctx context.Context, title, message string)
}

// Deps collects the collaborators of the decision engine.
type Deps struct {
	Tracker   *ActivePairSet
	Registry  *QuoteSymbolRegistry
	Directive *DirectiveCache
	Scope     *TradeScope
	Intents   domain.IntentStore
	History   domain.TradeHistoryStore
	Quoter    domain.Quoter
	Swapper   domain.SwapExecutor
	Oracle    domain.PriceOracle
	Bus       domain.EventPublisher
	Alerter   Alerter
	Logger    *slog.Logger
}

// Engine reacts to pool events with entry and exit decisions. All intent
// state lives in storage; concurrent decisions for the same pair are
// serialized by status-guarded conditional updates, not by a mutex, so
// multiple engine instances can safely share one database.
type Engine struct {
	tracker   *ActivePairSet
	registry  *QuoteSymbolRegistry
	directive *DirectiveCache
	scope     *TradeScope
	intents   domain.IntentStore
	history   domain.TradeHistoryStore
	quoter    domain.Quoter
	swapper   domain.SwapExecutor
	oracle    domain.PriceOracle
	bus       domain.EventPublisher
	alerter   Alerter
	logger    *slog.Logger
}

// New creates an Engine.
func New(d Deps) *Engine {
	return &Engine{
		tracker:   d.Tracker,
		registry:  d.Registry,
		directive: d.Directive,
		scope:     d.Scope,
		intents:   d.Intents,
		history:   d.History,
		quoter:    d.Quoter,
		swapper:   d.Swapper,
		oracle:    d.Oracle,
		bus:       d.Bus,
		alerter:   d.Alerter,
		logger:    d.Logger.With(slog.String("component", "engine")),
	}
}

// HandlePairCreated starts the trading flow for a newly discovered pool:
// create its intent, mark the pair tracked, and immediately attempt an
// entry against the creation snapshot.
func (e *Engine) HandlePairCreated(ctx context.Context, pair domain.Pair) {
	if pair.ExchangeID != supportedExchange {
		e.logger.Debug("unsupported exchange", slog.String("pair", pair.ID), slog.String("exchange", pair.ExchangeID))
		return
	}
	if !e.scope.Allows(pair) {
		e.logger.Debug("pair outside trading scope", slog.String("pair", pair.ID))
		return
	}

	intent := domain.TradingIntent{
		ID:     uuid.NewString(),
		PairID: pair.ID,
		Status: domain.StatusFindingEntry,
	}
	if err := e.intents.Create(ctx, intent); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Concurrent duplicate event; the pair already has an active intent.
			e.logger.Debug("intent already exists", slog.String("pair", pair.ID))
		} else {
			e.logger.Error("intent create failed",
				slog.String("pair", pair.ID),
				slog.String("error", err.Error()),
			)
			return
		}
	} else {
		e.logger.Info("tracking new pair",
			slog.String("pair", pair.ID),
			slog.String("name", pair.Name()),
			slog.Float64("liquidity_usd", pair.LiquidityUSD),
		)
	}

	e.tracker.Set(pair.ID, true)
	e.TryEntry(ctx, pair)
}

// HandlePairUpdated runs every applicable decision against a fresh pool
// snapshot. Each attempt no-ops quickly when the intent is not in the
// status it watches for.
func (e *Engine) HandlePairUpdated(ctx context.Context, pair domain.Pair) {
	if pair.ExchangeID != supportedExchange {
		return
	}
	if !e.tracker.Has(pair.ID) {
		return
	}

	e.TryEntry(ctx, pair)
	e.TryTakeProfit(ctx, pair)
	e.TryStopLoss(ctx, pair)
}

// lockIntent finds the intent watching for this purpose and locks it with a
// status-guarded transition. Returns ErrNotFound when no intent watches,
// and ErrStatusConflict when another decision won the lock first; both are
// normal, silent outcomes.
func (e *Engine) lockIntent(ctx context.Context, purpose domain.TradePurpose, pairID string) (domain.TradingIntent, error) {
	intent, err := e.intents.FindByPairAndStatus(ctx, pairID, purpose.Watching())
	if err != nil {
		return domain.TradingIntent{}, err
	}
	if err := e.intents.TransitionStatus(ctx, intent.ID, purpose.Watching(), purpose.Locked()); err != nil {
		return domain.TradingIntent{}, err
	}
	intent.Status = purpose.Locked()
	return intent, nil
}

// unlock rolls a locked intent back to its watching status. Failing to
// unlock would strand the pair, so a rollback failure is loud.
func (e *Engine) unlock(ctx context.Context, purpose domain.TradePurpose, intentID string) {
	if err := e.intents.TransitionStatus(ctx, intentID, purpose.Locked(), purpose.Watching()); err != nil {
		e.logger.Error("intent unlock failed, pair may be stranded",
			slog.String("intent", intentID),
			slog.String("purpose", purpose.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) publish(ctx context.Context, event string, pair domain.Pair, trade domain.TradeHistoryEntry, intent domain.TradingIntent) {
	payload, err := json.Marshal(domain.TradeEvent{
		Event:  event,
		Pair:   pair,
		Trade:  trade,
		Intent: intent,
	})
	if err != nil {
		e.logger.Error("trade event marshal failed", slog.String("event", event), slog.String("error", err.Error()))
		return
	}
	if err := e.bus.Publish(ctx, event, payload); err != nil {
		e.logger.Error("trade event publish failed", slog.String("event", event), slog.String("error", err.Error()))
	}
}

func (e *Engine) alert(ctx context.Context, title, message string) {
	if e.alerter != nil {
		e.alerter.Alert(ctx, title, message)
	}
}
