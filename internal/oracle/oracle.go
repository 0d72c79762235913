// Package oracle resolves token USD prices for trade sizing. Stable coins
// are pegged at 1.0, the wrapped native token is priced from feed ticks, and
// everything else on the quote allow-list falls back to the Binance spot
// ticker, with a shared TTL cache in front.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// SymbolTable resolves a symbol to its allow-list entry. Implemented by the
// engine's quote-symbol registry.
type SymbolTable interface {
	Lookup(symbol string) (domain.QuoteSymbol, bool)
}

// TickerSource fetches an upstream spot price for a ticker like "BNBUSDT".
type TickerSource interface {
	TickerPrice(ctx context.Context, ticker string) (float64, error)
}

// Oracle implements domain.PriceOracle.
type Oracle struct {
	chainID       int
	table         SymbolTable
	cache         domain.PriceCache
	source        TickerSource
	nativeSymbols []string // symbols repriced on every native-currency tick
	logger        *slog.Logger
}

// New creates an Oracle for the given chain.
func New(chainID int, table SymbolTable, cache domain.PriceCache, source TickerSource, nativeSymbols []string, logger *slog.Logger) *Oracle {
	return &Oracle{
		chainID:       chainID,
		table:         table,
		cache:         cache,
		source:        source,
		nativeSymbols: nativeSymbols,
		logger:        logger.With(slog.String("component", "oracle")),
	}
}

func (o *Oracle) cacheKey(symbol, address string) string {
	return fmt.Sprintf("usd:%d:%s:%s", o.chainID, symbol, strings.ToLower(address))
}

// PriceUSD resolves a symbol's USD price. Returns domain.ErrPriceUnavailable
// when the symbol is not on the allow-list or the upstream lookup fails;
// unavailable is distinct from a zero price.
func (o *Oracle) PriceUSD(ctx context.Context, symbol, address string) (float64, error) {
	symbol = strings.ToUpper(symbol)

	known, ok := o.table.Lookup(symbol)
	if !ok {
		return 0, domain.ErrPriceUnavailable
	}

	if known.IsStable && strings.EqualFold(known.Address, address) {
		return 1, nil
	}

	key := o.cacheKey(symbol, address)
	if price, err := o.cache.GetPrice(ctx, key); err == nil {
		return price, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		o.logger.WarnContext(ctx, "price cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	if known.BinanceSymbol == "" {
		return 0, domain.ErrPriceUnavailable
	}

	price, err := o.source.TickerPrice(ctx, known.BinanceSymbol)
	if err != nil {
		o.logger.WarnContext(ctx, "upstream ticker lookup failed",
			slog.String("ticker", known.BinanceSymbol),
			slog.String("error", err.Error()),
		)
		return 0, domain.ErrPriceUnavailable
	}

	if err := o.cache.SetPrice(ctx, key, price); err != nil {
		o.logger.WarnContext(ctx, "price cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return price, nil
}

// SetNativePrice reprices the wrapped/native symbols from a feed tick. The
// feed delivers these continuously, so the native token rarely falls through
// to the upstream ticker.
func (o *Oracle) SetNativePrice(ctx context.Context, priceUsd float64) {
	for _, sym := range o.nativeSymbols {
		known, ok := o.table.Lookup(strings.ToUpper(sym))
		if !ok {
			continue
		}
		key := o.cacheKey(known.Symbol, known.Address)
		if err := o.cache.SetPrice(ctx, key, priceUsd); err != nil {
			o.logger.WarnContext(ctx, "native price cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

var _ domain.PriceOracle = (*Oracle)(nil)
