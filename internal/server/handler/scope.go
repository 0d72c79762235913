package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sniperlabs/dexsniper/internal/engine"
)

// ScopeHandler serves the trading-scope HTTP endpoints.
type ScopeHandler struct {
	scope  *engine.TradeScope
	logger *slog.Logger
}

// NewScopeHandler creates a ScopeHandler with the given scope and logger.
func NewScopeHandler(scope *engine.TradeScope, logger *slog.Logger) *ScopeHandler {
	return &ScopeHandler{
		scope:  scope,
		logger: logger,
	}
}

// scopeResponse is the JSON shape of the trading scope.
type scopeResponse struct {
	Mode       string   `json:"mode"`
	SinglePair string   `json:"single_pair,omitempty"`
	Contracts  []string `json:"contracts"`
}

// GetScope returns the active trading scope.
// GET /api/scope
func (h *ScopeHandler) GetScope(w http.ResponseWriter, r *http.Request) {
	mode, singlePair := h.scope.Mode()
	contracts := h.scope.Contracts()
	if contracts == nil {
		contracts = []string{}
	}

	writeJSON(w, http.StatusOK, scopeResponse{
		Mode:       string(mode),
		SinglePair: singlePair,
		Contracts:  contracts,
	})
}

// updateScopeRequest is the body of a scope mode change.
type updateScopeRequest struct {
	Mode       string `json:"mode"`
	SinglePair string `json:"single_pair"`
}

// UpdateScope switches the trading scope mode at runtime.
// PUT /api/scope
func (h *ScopeHandler) UpdateScope(w http.ResponseWriter, r *http.Request) {
	var req updateScopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	mode, err := engine.ParseScopeMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if mode == engine.ScopeSinglePair && req.SinglePair == "" {
		writeError(w, http.StatusBadRequest, "single_pair is required for singlePair mode")
		return
	}

	h.scope.SetMode(mode, req.SinglePair)
	h.logger.InfoContext(r.Context(), "trading scope updated",
		slog.String("mode", req.Mode),
		slog.String("single_pair", req.SinglePair),
	)

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "mode": req.Mode})
}

// AddContract adds one token contract to the scope allow-list.
// POST /api/scope/contracts
func (h *ScopeHandler) AddContract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Contract string `json:"contract"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Contract == "" {
		writeError(w, http.StatusBadRequest, "contract is required")
		return
	}

	if err := h.scope.SetContract(r.Context(), req.Contract, true); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: add scope contract failed",
			slog.String("contract", req.Contract),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to add contract")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "added", "contract": req.Contract})
}

// RemoveContract removes one token contract from the scope allow-list.
// DELETE /api/scope/contracts/{address}
func (h *ScopeHandler) RemoveContract(w http.ResponseWriter, r *http.Request) {
	contract := pathParam(r, "address")
	if contract == "" {
		writeError(w, http.StatusBadRequest, "missing contract address")
		return
	}

	if err := h.scope.SetContract(r.Context(), contract, false); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: remove scope contract failed",
			slog.String("contract", contract),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to remove contract")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "contract": contract})
}
