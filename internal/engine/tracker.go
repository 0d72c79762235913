package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// persistTimeout bounds the background writes that mirror tracking changes
// to the store.
const persistTimeout = 5 * time.Second

// ActivePairSet tracks which pairs the engine is actively trading. Reads and
// writes hit the in-memory set; every change is mirrored to the store in the
// background so a restart can recover the set, but a slow database never
// delays a trading decision.
type ActivePairSet struct {
	store  domain.ActivePairStore
	logger *slog.Logger

	mu    sync.RWMutex
	pairs map[string]struct{}
}

// NewActivePairSet creates an empty set; call Load to restore persisted state.
func NewActivePairSet(store domain.ActivePairStore, logger *slog.Logger) *ActivePairSet {
	return &ActivePairSet{
		store:  store,
		logger: logger.With(slog.String("component", "active_pairs")),
		pairs:  make(map[string]struct{}),
	}
}

// Load restores the set from the store.
func (s *ActivePairSet) Load(ctx context.Context) error {
	ids, err := s.store.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pairs = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.pairs[id] = struct{}{}
	}
	s.mu.Unlock()

	s.logger.Info("active pairs restored", slog.Int("count", len(ids)))
	return nil
}

// Has reports whether the pair is actively tracked.
func (s *ActivePairSet) Has(pairID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pairs[pairID]
	return ok
}

// Set adds or removes a pair. The in-memory change is immediate; the store
// write happens in the background and a failure there only logs.
func (s *ActivePairSet) Set(pairID string, active bool) {
	s.mu.Lock()
	if active {
		s.pairs[pairID] = struct{}{}
	} else {
		delete(s.pairs, pairID)
	}
	s.mu.Unlock()

	go s.persist(pairID, active)
}

// List returns a snapshot of tracked pair IDs.
func (s *ActivePairSet) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.pairs))
	for id := range s.pairs {
		out = append(out, id)
	}
	return out
}

func (s *ActivePairSet) persist(pairID string, active bool) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	var err error
	if active {
		err = s.store.Add(ctx, pairID)
	} else {
		err = s.store.Remove(ctx, pairID)
	}
	if err != nil {
		s.logger.Error("active pair persistence failed",
			slog.String("pair", pairID),
			slog.Bool("active", active),
			slog.String("error", err.Error()),
		)
	}
}
