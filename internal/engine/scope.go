package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// ScopeMode selects which newly discovered pairs the engine trades.
type ScopeMode string

const (
	// ScopeAll trades every pair the feed delivers.
	ScopeAll ScopeMode = "all"
	// ScopeContracts trades only pairs whose base token is on the
	// persisted contract allow-list.
	ScopeContracts ScopeMode = "contracts"
	// ScopeSinglePair trades only the one configured pair ID.
	ScopeSinglePair ScopeMode = "singlePair"
)

// ParseScopeMode validates a mode string from config or the admin API.
func ParseScopeMode(s string) (ScopeMode, error) {
	switch ScopeMode(s) {
	case ScopeAll, ScopeContracts, ScopeSinglePair:
		return ScopeMode(s), nil
	default:
		return "", fmt.Errorf("engine: unknown scope mode %q", s)
	}
}

// TradeScope filters pair events by the operator-selected subscription
// scope. It is constructed once and injected wherever needed; the contract
// allow-list is mirrored to the store on every change.
type TradeScope struct {
	store  domain.ScopeContractStore
	logger *slog.Logger

	mu         sync.RWMutex
	mode       ScopeMode
	singlePair string
	contracts  map[string]struct{}
}

// NewTradeScope creates a TradeScope in the given mode. singlePair is only
// consulted in ScopeSinglePair mode.
func NewTradeScope(store domain.ScopeContractStore, mode ScopeMode, singlePair string, logger *slog.Logger) *TradeScope {
	return &TradeScope{
		store:      store,
		logger:     logger.With(slog.String("component", "trade_scope")),
		mode:       mode,
		singlePair: singlePair,
		contracts:  make(map[string]struct{}),
	}
}

// Load restores the persisted contract allow-list.
func (s *TradeScope) Load(ctx context.Context) error {
	contracts, err := s.store.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.contracts = make(map[string]struct{}, len(contracts))
	for _, c := range contracts {
		s.contracts[strings.ToLower(c)] = struct{}{}
	}
	s.mu.Unlock()

	s.logger.Info("scope contracts restored", slog.Int("count", len(contracts)))
	return nil
}

// Allows reports whether the scope admits the pair.
func (s *TradeScope) Allows(pair domain.Pair) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.mode {
	case ScopeAll:
		return true
	case ScopeContracts:
		_, ok0 := s.contracts[strings.ToLower(pair.Token0.Address)]
		_, ok1 := s.contracts[strings.ToLower(pair.Token1.Address)]
		return ok0 || ok1
	case ScopeSinglePair:
		return pair.ID == s.singlePair
	default:
		return false
	}
}

// Mode returns the current scope mode and, for singlePair mode, the pair ID.
func (s *TradeScope) Mode() (ScopeMode, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode, s.singlePair
}

// SetMode switches the scope mode at runtime.
func (s *TradeScope) SetMode(mode ScopeMode, singlePair string) {
	s.mu.Lock()
	s.mode = mode
	s.singlePair = singlePair
	s.mu.Unlock()

	s.logger.Info("scope mode changed",
		slog.String("mode", string(mode)),
		slog.String("single_pair", singlePair),
	)
}

// SetContract adds or removes a contract from the allow-list and mirrors
// the change to the store.
func (s *TradeScope) SetContract(ctx context.Context, contract string, enabled bool) error {
	key := strings.ToLower(contract)

	s.mu.Lock()
	if enabled {
		s.contracts[key] = struct{}{}
	} else {
		delete(s.contracts, key)
	}
	s.mu.Unlock()

	if enabled {
		return s.store.Add(ctx, key)
	}
	return s.store.Remove(ctx, key)
}

// Contracts returns a snapshot of the contract allow-list.
func (s *TradeScope) Contracts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.contracts))
	for c := range s.contracts {
		out = append(out, c)
	}
	return out
}
