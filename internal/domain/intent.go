package domain

import (
	"fmt"
	"time"
)

// IntentStatus is the lifecycle status of a trading intent.
type IntentStatus string

const (
	StatusFindingEntry IntentStatus = "FindingEntry"
	StatusTakingEntry  IntentStatus = "TakingEntry"
	StatusFindingExit  IntentStatus = "FindingExit"
	StatusTakingExit   IntentStatus = "TakingExit"
	StatusTP           IntentStatus = "TP"
	StatusSL           IntentStatus = "SL"
)

// Terminal reports whether the status ends the intent's lifecycle.
func (s IntentStatus) Terminal() bool {
	return s == StatusTP || s == StatusSL
}

// TradingIntent is the single mutable record of the bot's trading posture on
// one pair. At most one intent per pair may be in a non-terminal status.
type TradingIntent struct {
	ID            string
	PairID        string
	Status        IntentStatus
	Entry         *float64 // set on successful entry, quote per base
	TP            *float64 // set on successful take-profit exit
	SL            *float64 // set on successful stop-loss exit
	Vol           *float64 // base token quantity held, set on entry
	ProfitPercent *float64 // realized, set on exit
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TradePurpose is the closed set of decision kinds the engine runs. Each
// purpose maps to its watching/locked/settled status triple so lock and
// unlock transitions cannot drift apart.
type TradePurpose int

const (
	PurposeEntry TradePurpose = iota
	PurposeTakeProfit
	PurposeStopLoss
)

// Watching is the status an intent must hold before this purpose may lock it.
func (p TradePurpose) Watching() IntentStatus {
	switch p {
	case PurposeEntry:
		return StatusFindingEntry
	case PurposeTakeProfit, PurposeStopLoss:
		return StatusFindingExit
	default:
		panic(fmt.Sprintf("unknown trade purpose %d", p))
	}
}

// Locked is the in-flight status held while this purpose executes a swap.
func (p TradePurpose) Locked() IntentStatus {
	switch p {
	case PurposeEntry:
		return StatusTakingEntry
	case PurposeTakeProfit, PurposeStopLoss:
		return StatusTakingExit
	default:
		panic(fmt.Sprintf("unknown trade purpose %d", p))
	}
}

// Settled is the status reached when this purpose's swap succeeds.
func (p TradePurpose) Settled() IntentStatus {
	switch p {
	case PurposeEntry:
		return StatusFindingExit
	case PurposeTakeProfit:
		return StatusTP
	case PurposeStopLoss:
		return StatusSL
	default:
		panic(fmt.Sprintf("unknown trade purpose %d", p))
	}
}

func (p TradePurpose) String() string {
	switch p {
	case PurposeEntry:
		return "entry"
	case PurposeTakeProfit:
		return "tp"
	case PurposeStopLoss:
		return "sl"
	default:
		return fmt.Sprintf("purpose(%d)", int(p))
	}
}
