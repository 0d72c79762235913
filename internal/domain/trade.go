package domain

import (
	"encoding/json"
	"time"
)

// TradeStatus is the outcome recorded for an executed swap.
type TradeStatus string

const (
	TradeStatusSuccess TradeStatus = "S"
	TradeStatusFailed  TradeStatus = "F"
)

// TradeHistoryEntry is the append-only audit record of one executed swap.
// Exactly one row is written per successful swap.
type TradeHistoryEntry struct {
	ID                 string
	Sell               string // symbol sold
	Buy                string // symbol bought
	SellAmount         float64
	ReceivedAmount     float64
	Price              float64 // realized price, quote per base
	PriceImpactPercent float64
	Duration           time.Duration
	Status             TradeStatus
	Receipt            json.RawMessage // raw execution receipt
	CreatedAt          time.Time
}
