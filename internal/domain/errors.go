package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrStatusConflict = errors.New("intent status conflict")

	ErrNoQuoteSymbols   = errors.New("quote symbol allow-list is empty")
	ErrNoQuoteSide      = errors.New("no pair side matches a quote symbol")
	ErrPriceUnavailable = errors.New("symbol price unavailable")
	ErrNoRoute          = errors.New("no liquidity route for trade")
	ErrLiquidityTooLow  = errors.New("pool liquidity below safe threshold")
	ErrPriceImpactHigh  = errors.New("price impact exceeds tolerance")
	ErrTargetNotReached = errors.New("exit target not reached")
	ErrBudgetInfeasible = errors.New("trade size window infeasible")
	ErrDirectiveMissing = errors.New("risk directive not configured")
	ErrWSDisconnect     = errors.New("websocket disconnected")
)
