package handler

import (
	"log/slog"
	"net/http"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// TradeHandler serves the swap audit-log HTTP endpoints.
type TradeHandler struct {
	trades domain.TradeHistoryStore
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given store and logger.
func NewTradeHandler(trades domain.TradeHistoryStore, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logger,
	}
}

// listTradesResponse wraps the list trades response.
type listTradesResponse struct {
	Trades []tradeView `json:"trades"`
}

// ListTrades returns the most recent trades, newest first.
// GET /api/trades?limit=50
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.trades.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, toTradeView(t))
	}

	writeJSON(w, http.StatusOK, listTradesResponse{Trades: views})
}
