package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sniperlabs/dexsniper/internal/domain"
	"github.com/sniperlabs/dexsniper/internal/engine"
)

// RiskHandler serves the risk directive HTTP endpoints. Reads come from the
// engine's cached snapshot; writes go through the cache so the new directive
// is visible to decisions immediately.
type RiskHandler struct {
	directive *engine.DirectiveCache
	logger    *slog.Logger
}

// NewRiskHandler creates a RiskHandler with the given cache and logger.
func NewRiskHandler(directive *engine.DirectiveCache, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{
		directive: directive,
		logger:    logger,
	}
}

// GetDirective returns the active risk directive.
// GET /api/risk
func (h *RiskHandler) GetDirective(w http.ResponseWriter, r *http.Request) {
	d, err := h.directive.Snapshot()
	if err != nil {
		if errors.Is(err, domain.ErrDirectiveMissing) {
			writeError(w, http.StatusNotFound, "no risk directive configured")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get risk directive failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get risk directive")
		return
	}

	writeJSON(w, http.StatusOK, toRiskView(d))
}

// UpdateDirective replaces the risk directive.
// PUT /api/risk
func (h *RiskHandler) UpdateDirective(w http.ResponseWriter, r *http.Request) {
	var v riskView
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	d := v.toDomain()
	if msg := validateDirective(d); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.directive.Update(r.Context(), d); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: update risk directive failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update risk directive")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// validateDirective returns an error message for an unusable directive, or
// empty when it is fine.
func validateDirective(d domain.RiskDirective) string {
	switch {
	case d.MinPairBudgetUSD <= 0:
		return "min_pair_budget_usd must be > 0"
	case d.MaxPairBudgetUSD < d.MinPairBudgetUSD:
		return "max_pair_budget_usd must be >= min_pair_budget_usd"
	case d.MaxVolPercentOfLP <= 0 || d.MaxVolPercentOfLP > 100:
		return "max_vol_percent_of_lp must be in (0, 100]"
	case d.SlippageTolerantPercent <= 0:
		return "slippage_tolerant_percent must be > 0"
	case d.TPTarget <= 1:
		return "tp_target must be > 1"
	case d.SLTarget <= 0 || d.SLTarget >= 1:
		return "sl_target must be in (0, 1)"
	case d.FixedGasPriceGwei != nil && *d.FixedGasPriceGwei <= 0:
		return "fixed_gas_price_gwei must be > 0 when set"
	}
	return ""
}
