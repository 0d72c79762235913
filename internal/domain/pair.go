// Package domain defines the core entities of the sniper bot and the
// interfaces through which the decision engine talks to storage, caching,
// quoting, and swap execution.
package domain

import (
	"fmt"
	"time"
)

// TokenIndex selects one side of a liquidity pair.
type TokenIndex int

const (
	Token0 TokenIndex = iota
	Token1
)

// Valid reports whether the index addresses an existing pair side.
func (i TokenIndex) Valid() bool {
	return i == Token0 || i == Token1
}

// Other returns the opposite side of the pair.
func (i TokenIndex) Other() TokenIndex {
	if i == Token0 {
		return Token1
	}
	return Token0
}

// Token describes one ERC-20 member of a liquidity pair.
type Token struct {
	Address  string
	Symbol   string
	Name     string
	Decimals int
}

// Pair is a liquidity pool between two tokens on one exchange/chain.
// Identity fields are immutable; reserves and liquidity are overwritten by
// every inbound pool-update event.
type Pair struct {
	ID         string
	Base       string // token0 symbol as reported by the feed
	Quote      string // token1 symbol as reported by the feed
	ChainID    int
	ExchangeID string
	Address    string

	Token0 Token
	Token1 Token

	Reserve0     float64
	Reserve1     float64
	LiquidityUSD float64

	InitialReserve0     float64
	InitialReserve1     float64
	InitialLiquidityUSD float64

	CreatedAt        time.Time
	ReserveUpdatedAt time.Time
}

// PairID derives the composite pair key from its identity fields.
func PairID(base, quote string, chainID int, exchangeID string) string {
	return fmt.Sprintf("%s_%s_%d_%s", base, quote, chainID, exchangeID)
}

// Token returns the pair member at the given index.
func (p Pair) Token(i TokenIndex) (Token, error) {
	switch i {
	case Token0:
		return p.Token0, nil
	case Token1:
		return p.Token1, nil
	default:
		return Token{}, fmt.Errorf("pair %s: invalid token index %d", p.ID, i)
	}
}

// Reserve returns the pooled amount for the side at the given index.
func (p Pair) Reserve(i TokenIndex) (float64, error) {
	switch i {
	case Token0:
		return p.Reserve0, nil
	case Token1:
		return p.Reserve1, nil
	default:
		return 0, fmt.Errorf("pair %s: invalid token index %d", p.ID, i)
	}
}

// Name returns the human-readable pair name, e.g. "HERO/BUSD".
func (p Pair) Name() string {
	return p.Token0.Symbol + "/" + p.Token1.Symbol
}

// QuoteSymbol is one entry of the quote-token allow-list: a token the bot is
// willing to hold as proceeds currency.
type QuoteSymbol struct {
	Symbol        string
	Address       string
	Decimals      int
	IsStable      bool
	BinanceSymbol string // spot ticker used for USD pricing, e.g. "BNBUSDT"
}
