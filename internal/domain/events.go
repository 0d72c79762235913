package domain

import "context"

// Domain event channels consumed by dashboards and admin tooling.
const (
	EventEntryCreated = "trade.entryCreated"
	EventTakeProfit   = "trade.tp"
	EventStopLoss     = "trade.sl"
)

// TradeEvent is the payload published on every entry/exit execution.
type TradeEvent struct {
	Event  string            `json:"event"`
	Pair   Pair              `json:"pair"`
	Trade  TradeHistoryEntry `json:"trade"`
	Intent TradingIntent     `json:"intent"`
}

// EventPublisher fans domain events out to external consumers. Publishing is
// fire-and-forget from the engine's perspective; a failed publish never
// affects the trading decision that produced it.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// EventSubscriber delivers published payloads for a channel until the
// context is cancelled.
type EventSubscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
