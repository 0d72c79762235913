// Package server exposes the admin HTTP + WebSocket API: scope and risk
// control, allow-list management, intent and trade inspection, and a live
// trade-event stream.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sniperlabs/dexsniper/internal/domain"
	"github.com/sniperlabs/dexsniper/internal/server/handler"
	"github.com/sniperlabs/dexsniper/internal/server/middleware"
	"github.com/sniperlabs/dexsniper/internal/server/ws"
)

// rate limit applied per client IP across the whole API.
const (
	rateLimitPerWindow = 120
	rateLimitWindow    = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	AuthToken   string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health       *handler.HealthHandler
	Intents      *handler.IntentHandler
	Trades       *handler.TradeHandler
	Risk         *handler.RiskHandler
	Scope        *handler.ScopeHandler
	QuoteSymbols *handler.QuoteSymbolHandler
	Pairs        *handler.PairHandler
	Archive      *handler.ArchiveHandler
}

// Server is the headless HTTP + WebSocket API server for the sniper bot.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, rate limiting, auth) and attaches
// the WebSocket hub. limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Intent endpoints.
	mux.HandleFunc("GET /api/intents", handlers.Intents.ListIntents)

	// Trade history endpoints.
	mux.HandleFunc("GET /api/trades", handlers.Trades.ListTrades)

	// Risk directive endpoints.
	mux.HandleFunc("GET /api/risk", handlers.Risk.GetDirective)
	mux.HandleFunc("PUT /api/risk", handlers.Risk.UpdateDirective)

	// Trading scope endpoints.
	mux.HandleFunc("GET /api/scope", handlers.Scope.GetScope)
	mux.HandleFunc("PUT /api/scope", handlers.Scope.UpdateScope)
	mux.HandleFunc("POST /api/scope/contracts", handlers.Scope.AddContract)
	mux.HandleFunc("DELETE /api/scope/contracts/{address}", handlers.Scope.RemoveContract)

	// Quote-symbol allow-list endpoints.
	mux.HandleFunc("GET /api/quotesymbols", handlers.QuoteSymbols.ListSymbols)
	mux.HandleFunc("PUT /api/quotesymbols", handlers.QuoteSymbols.ReplaceSymbols)

	// Pair endpoints.
	mux.HandleFunc("GET /api/pairs/active", handlers.Pairs.ListActivePairs)
	mux.HandleFunc("GET /api/pairs/{id}", handlers.Pairs.GetPair)

	// Archive browsing endpoints.
	mux.HandleFunc("GET /api/archive", handlers.Archive.ListObjects)
	mux.HandleFunc("GET /api/archive/object", handlers.Archive.GetObject)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if AuthToken is empty).
	h = middleware.Auth(cfg.AuthToken)(h)

	// Apply per-IP rate limiting when a limiter is provided.
	if limiter != nil {
		h = middleware.RateLimit(limiter, rateLimitPerWindow, rateLimitWindow)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
