package domain

import (
	"context"
	"time"
)

// PairStore persists liquidity pairs. Create returns ErrAlreadyExists for a
// duplicate pair ID (duplicate pool-creation events are expected and benign).
type PairStore interface {
	Create(ctx context.Context, p Pair) error
	Update(ctx context.Context, p Pair) error
	GetByID(ctx context.Context, id string) (Pair, error)
}

// IntentStore persists trading intents. All status transitions are
// single-row conditional updates filtered by the expected current status;
// a transition whose row is no longer in that status returns
// ErrStatusConflict ("someone already moved it"), which callers treat as a
// lost race, not a failure to retry.
type IntentStore interface {
	Create(ctx context.Context, intent TradingIntent) error
	FindByPairAndStatus(ctx context.Context, pairID string, status IntentStatus) (TradingIntent, error)
	// TransitionStatus moves the intent from one status to another. Used
	// both to acquire the per-pair lock (watching -> locked) and to roll
	// it back (locked -> watching).
	TransitionStatus(ctx context.Context, id string, from, to IntentStatus) error
	// RecordEntry converts a TakingEntry lock into FindingExit, recording
	// the realized entry price and acquired volume.
	RecordEntry(ctx context.Context, id string, entry, vol float64) error
	// RecordExit converts a TakingExit lock into the given terminal
	// status, recording the exit price and realized profit percent.
	RecordExit(ctx context.Context, id string, terminal IntentStatus, exitPrice, profitPercent float64) error
	ListByStatus(ctx context.Context, status IntentStatus) ([]TradingIntent, error)
}

// TradeHistoryStore persists the append-only swap audit log.
type TradeHistoryStore interface {
	Insert(ctx context.Context, t TradeHistoryEntry) error
	ListRecent(ctx context.Context, limit int) ([]TradeHistoryEntry, error)
}

// RiskDirectiveStore persists the singleton risk/sizing configuration.
// Get returns ErrNotFound when no directive row exists.
type RiskDirectiveStore interface {
	Get(ctx context.Context) (RiskDirective, error)
	Upsert(ctx context.Context, d RiskDirective) error
}

// ActivePairStore is the durability aid behind the in-memory active pair
// set. Add ignores duplicate rows; Remove ignores absent rows.
type ActivePairStore interface {
	Add(ctx context.Context, pairID string) error
	Remove(ctx context.Context, pairID string) error
	List(ctx context.Context) ([]string, error)
}

// QuoteSymbolStore persists the quote-token allow-list.
type QuoteSymbolStore interface {
	List(ctx context.Context) ([]QuoteSymbol, error)
	Replace(ctx context.Context, symbols []QuoteSymbol) error
}

// ScopeContractStore persists the contract allow-list used by the
// "contracts" trading scope.
type ScopeContractStore interface {
	Add(ctx context.Context, contract string) error
	Remove(ctx context.Context, contract string) error
	List(ctx context.Context) ([]string, error)
}

// PriceCache caches symbol USD prices with a TTL so hot quote symbols do not
// hit the upstream price source on every decision.
type PriceCache interface {
	SetPrice(ctx context.Context, key string, price float64) error
	GetPrice(ctx context.Context, key string) (float64, error)
}

// RateLimiter limits how many times a keyed action may run per window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
