package handler

import (
	"log/slog"
	"net/http"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// IntentHandler serves trading-intent HTTP endpoints.
type IntentHandler struct {
	intents domain.IntentStore
	logger  *slog.Logger
}

// NewIntentHandler creates an IntentHandler with the given store and logger.
func NewIntentHandler(intents domain.IntentStore, logger *slog.Logger) *IntentHandler {
	return &IntentHandler{
		intents: intents,
		logger:  logger,
	}
}

// listIntentsResponse wraps the list intents response.
type listIntentsResponse struct {
	Intents []intentView `json:"intents"`
}

// validIntentStatuses enumerates the statuses accepted in the query string.
var validIntentStatuses = map[string]domain.IntentStatus{
	"FindingEntry": domain.StatusFindingEntry,
	"TakingEntry":  domain.StatusTakingEntry,
	"FindingExit":  domain.StatusFindingExit,
	"TakingExit":   domain.StatusTakingExit,
	"TP":           domain.StatusTP,
	"SL":           domain.StatusSL,
}

// ListIntents returns intents in the given lifecycle status.
// GET /api/intents?status=FindingExit
func (h *IntentHandler) ListIntents(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "status query parameter required")
		return
	}
	status, ok := validIntentStatuses[raw]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status "+raw)
		return
	}

	intents, err := h.intents.ListByStatus(r.Context(), status)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list intents failed",
			slog.String("status", raw),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list intents")
		return
	}

	views := make([]intentView, 0, len(intents))
	for _, i := range intents {
		views = append(views, toIntentView(i))
	}

	writeJSON(w, http.StatusOK, listIntentsResponse{Intents: views})
}
