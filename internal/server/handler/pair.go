package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sniperlabs/dexsniper/internal/domain"
	"github.com/sniperlabs/dexsniper/internal/engine"
)

// PairHandler serves liquidity-pair HTTP endpoints.
type PairHandler struct {
	pairs   domain.PairStore
	tracker *engine.ActivePairSet
	logger  *slog.Logger
}

// NewPairHandler creates a PairHandler with the given store, tracker, and
// logger.
func NewPairHandler(pairs domain.PairStore, tracker *engine.ActivePairSet, logger *slog.Logger) *PairHandler {
	return &PairHandler{
		pairs:   pairs,
		tracker: tracker,
		logger:  logger,
	}
}

// GetPair returns one pair by its composite ID.
// GET /api/pairs/{id}
func (h *PairHandler) GetPair(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pair id")
		return
	}

	pair, err := h.pairs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pair not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get pair failed",
			slog.String("pair_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get pair")
		return
	}

	writeJSON(w, http.StatusOK, toPairView(pair))
}

// ListActivePairs returns the pair IDs the engine currently tracks.
// GET /api/pairs/active
func (h *PairHandler) ListActivePairs(w http.ResponseWriter, r *http.Request) {
	ids := h.tracker.List()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pair_ids": ids})
}
