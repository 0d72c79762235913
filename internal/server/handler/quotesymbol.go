package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sniperlabs/dexsniper/internal/domain"
	"github.com/sniperlabs/dexsniper/internal/engine"
)

// QuoteSymbolHandler serves the quote-token allow-list HTTP endpoints.
type QuoteSymbolHandler struct {
	registry *engine.QuoteSymbolRegistry
	logger   *slog.Logger
}

// NewQuoteSymbolHandler creates a QuoteSymbolHandler with the given registry
// and logger.
func NewQuoteSymbolHandler(registry *engine.QuoteSymbolRegistry, logger *slog.Logger) *QuoteSymbolHandler {
	return &QuoteSymbolHandler{
		registry: registry,
		logger:   logger,
	}
}

// listQuoteSymbolsResponse wraps the allow-list response.
type listQuoteSymbolsResponse struct {
	Symbols []quoteSymbolView `json:"symbols"`
}

// ListSymbols returns the active quote-token allow-list.
// GET /api/quotesymbols
func (h *QuoteSymbolHandler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols := h.registry.List()

	views := make([]quoteSymbolView, 0, len(symbols))
	for _, s := range symbols {
		views = append(views, toQuoteSymbolView(s))
	}

	writeJSON(w, http.StatusOK, listQuoteSymbolsResponse{Symbols: views})
}

// ReplaceSymbols replaces the entire allow-list. The new list takes effect
// atomically once persisted.
// PUT /api/quotesymbols
func (h *QuoteSymbolHandler) ReplaceSymbols(w http.ResponseWriter, r *http.Request) {
	var req listQuoteSymbolsResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, "at least one quote symbol is required")
		return
	}

	symbols := make([]domain.QuoteSymbol, 0, len(req.Symbols))
	for i, v := range req.Symbols {
		if v.Symbol == "" || v.Address == "" || v.Decimals <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("symbols[%d]: symbol, address, and decimals are required", i))
			return
		}
		symbols = append(symbols, v.toDomain())
	}

	if err := h.registry.Replace(r.Context(), symbols); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: replace quote symbols failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to replace quote symbols")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "replaced",
		"count":  len(symbols),
	})
}
