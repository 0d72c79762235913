package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// directiveRefreshInterval is how often the cached risk directive is
// re-read from the store.
const directiveRefreshInterval = time.Minute

// DirectiveCache serves risk directive snapshots to trading decisions. The
// directive is read-mostly; decisions take one snapshot and never observe a
// mid-decision change.
type DirectiveCache struct {
	store  domain.RiskDirectiveStore
	logger *slog.Logger

	mu        sync.RWMutex
	directive domain.RiskDirective
	loaded    bool
}

// NewDirectiveCache creates an empty cache; call Refresh or Run to fill it.
func NewDirectiveCache(store domain.RiskDirectiveStore, logger *slog.Logger) *DirectiveCache {
	return &DirectiveCache{
		store:  store,
		logger: logger.With(slog.String("component", "risk_directive")),
	}
}

// Refresh re-reads the directive from the store. A missing directive row is
// tolerated here; it surfaces per decision through Snapshot instead.
func (c *DirectiveCache) Refresh(ctx context.Context) error {
	d, err := c.store.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.logger.Warn("no risk directive configured; trading decisions will abort")
			return nil
		}
		return err
	}

	c.mu.Lock()
	c.directive = d
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Run refreshes the directive periodically until ctx is cancelled.
func (c *DirectiveCache) Run(ctx context.Context) error {
	ticker := time.NewTicker(directiveRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Error("risk directive refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Snapshot returns the current directive. Returns ErrDirectiveMissing when
// none has ever been loaded.
func (c *DirectiveCache) Snapshot() (domain.RiskDirective, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.loaded {
		return domain.RiskDirective{}, domain.ErrDirectiveMissing
	}
	return c.directive, nil
}

// Update persists a new directive and makes it visible immediately.
func (c *DirectiveCache) Update(ctx context.Context, d domain.RiskDirective) error {
	d.UpdatedAt = time.Now()
	if err := c.store.Upsert(ctx, d); err != nil {
		return err
	}

	c.mu.Lock()
	c.directive = d
	c.loaded = true
	c.mu.Unlock()
	return nil
}
