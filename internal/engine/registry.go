// Package engine holds the trading decision core: pair event handling,
// entry and exit decisions, sizing, and the per-pair intent lifecycle.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// QuoteSymbolRegistry is the in-memory view of the quote-token allow-list.
// The engine consults it on every pair event; reloads swap the whole view
// atomically.
type QuoteSymbolRegistry struct {
	store  domain.QuoteSymbolStore
	logger *slog.Logger

	mu        sync.RWMutex
	bySymbol  map[string]domain.QuoteSymbol
	byAddress map[string]domain.QuoteSymbol
}

// NewQuoteSymbolRegistry creates an empty registry; call Reload before use.
func NewQuoteSymbolRegistry(store domain.QuoteSymbolStore, logger *slog.Logger) *QuoteSymbolRegistry {
	return &QuoteSymbolRegistry{
		store:     store,
		logger:    logger.With(slog.String("component", "quote_symbols")),
		bySymbol:  make(map[string]domain.QuoteSymbol),
		byAddress: make(map[string]domain.QuoteSymbol),
	}
}

// Reload replaces the in-memory allow-list from the store. An empty
// allow-list is a configuration error: without it no pair side can ever be
// selected, so the caller must treat ErrNoQuoteSymbols as fatal at startup.
func (r *QuoteSymbolRegistry) Reload(ctx context.Context) error {
	symbols, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("engine: load quote symbols: %w", err)
	}
	if len(symbols) == 0 {
		return domain.ErrNoQuoteSymbols
	}

	bySymbol := make(map[string]domain.QuoteSymbol, len(symbols))
	byAddress := make(map[string]domain.QuoteSymbol, len(symbols))
	for _, s := range symbols {
		bySymbol[strings.ToUpper(s.Symbol)] = s
		byAddress[strings.ToLower(s.Address)] = s
	}

	r.mu.Lock()
	r.bySymbol = bySymbol
	r.byAddress = byAddress
	r.mu.Unlock()

	r.logger.Info("quote symbol allow-list loaded", slog.Int("count", len(symbols)))
	return nil
}

// Replace persists a new allow-list and reloads the in-memory view.
func (r *QuoteSymbolRegistry) Replace(ctx context.Context, symbols []domain.QuoteSymbol) error {
	if len(symbols) == 0 {
		return domain.ErrNoQuoteSymbols
	}
	if err := r.store.Replace(ctx, symbols); err != nil {
		return err
	}
	return r.Reload(ctx)
}

// Lookup resolves a symbol to its allow-list entry.
func (r *QuoteSymbolRegistry) Lookup(symbol string) (domain.QuoteSymbol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.bySymbol[strings.ToUpper(symbol)]
	return s, ok
}

// IsQuote reports whether a pair token is on the allow-list. The contract
// address is checked first; the symbol alone is not trusted because anyone
// can deploy a token named "BUSD".
func (r *QuoteSymbolRegistry) IsQuote(t domain.Token) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.byAddress[strings.ToLower(t.Address)]; ok {
		return strings.EqualFold(s.Symbol, t.Symbol)
	}
	return false
}

// List returns a snapshot of the allow-list.
func (r *QuoteSymbolRegistry) List() []domain.QuoteSymbol {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.QuoteSymbol, 0, len(r.bySymbol))
	for _, s := range r.bySymbol {
		out = append(out, s)
	}
	return out
}
