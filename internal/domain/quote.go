package domain

import (
	"context"
	"encoding/json"
	"math/big"
	"time"
)

// Quote is the result of pricing a prospective swap against the AMM. The
// execution price is denominated in buy-token per one sell-token.
type Quote struct {
	SellToken Token
	BuyToken  Token
	SellAmount float64

	ExecutionPrice     float64
	MidPrice           float64
	NextMidPrice       float64
	PriceImpactPercent float64
	MinimumOut         float64

	// Handle is an opaque, executor-specific trade object carried from
	// Quote to ExecuteSwap unchanged.
	Handle any
}

// Quoter prices a prospective swap. slippageBps is the slippage tolerance in
// basis points (denominator 10000). Returns ErrNoRoute when no liquidity
// route exists between the two tokens.
type Quoter interface {
	Quote(ctx context.Context, sell, buy Token, sellAmount float64, slippageBps int) (Quote, error)
}

// SwapOptions carries per-swap execution overrides.
type SwapOptions struct {
	GasPrice *big.Int // nil = node-suggested gas price
}

// SwapResult is the outcome of a broadcast swap transaction. The transaction
// itself carries a fixed validity deadline; a timed-out swap surfaces as an
// error from ExecuteSwap, not as a separate cancellation path.
type SwapResult struct {
	TxHash   string
	Duration time.Duration
	Receipt  json.RawMessage
}

// SwapExecutor broadcasts a quoted swap on chain and waits for its receipt.
type SwapExecutor interface {
	ExecuteSwap(ctx context.Context, q Quote, opts SwapOptions) (SwapResult, error)

	// TokenBalance reports the trading wallet's spendable balance of token
	// in human-readable units.
	TokenBalance(ctx context.Context, token Token) (float64, error)
}

// PriceOracle resolves a token's USD price. Returns ErrPriceUnavailable for
// unknown symbols; unknown is distinct from a zero price.
type PriceOracle interface {
	PriceUSD(ctx context.Context, symbol, address string) (float64, error)
}
