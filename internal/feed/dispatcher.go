package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

const (
	// pairThrottleInterval coalesces repeat updates for the same pair;
	// dextools can fire several snapshots per second for a hot pool.
	pairThrottleInterval = time.Second

	// throttleMaxEntries caps the throttle map; oldest entries are evicted
	// so long-running streams do not grow it unbounded.
	throttleMaxEntries = 512
)

// PairHandler receives persisted pair events from the dispatcher.
type PairHandler interface {
	HandlePairCreated(ctx context.Context, pair domain.Pair)
	HandlePairUpdated(ctx context.Context, pair domain.Pair)
}

// NativePriceSink receives native-currency USD ticks.
type NativePriceSink interface {
	SetNativePrice(ctx context.Context, priceUsd float64)
}

// throttleState tracks one pair's throttle window. A non-nil pending
// snapshot is the latest event received inside the window, delivered when
// the window closes.
type throttleState struct {
	last    time.Time
	pending *domain.Pair
}

// Dispatcher decodes raw stream messages, persists pair snapshots, and
// routes them to the engine. Whether a pool is new is decided against the
// store, not the event payload: dextools update events sometimes carry
// creation info and sometimes do not.
type Dispatcher struct {
	pairs    domain.PairStore
	handler  PairHandler
	prices   NativePriceSink
	logger   *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	throttle map[string]*throttleState
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(pairs domain.PairStore, handler PairHandler, prices NativePriceSink, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		pairs:    pairs,
		handler:  handler,
		prices:   prices,
		logger:   logger.With(slog.String("component", "feed_dispatcher")),
		interval: pairThrottleInterval,
		throttle: make(map[string]*throttleState),
	}
}

// Dispatch handles one raw stream message. It satisfies MessageHandler.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) {
	pairEv, priceEv, err := parseMessage(raw)
	if err != nil {
		d.logger.Debug("undecodable stream message",
			slog.Int("payload_len", len(raw)),
			slog.String("error", err.Error()),
		)
		return
	}

	switch {
	case priceEv != nil:
		d.prices.SetNativePrice(ctx, priceEv.PriceUSD)
	case pairEv != nil:
		d.admit(ctx, pairEv.Pair)
	}
}

// admit applies the per-pair throttle. The first event in a window routes
// immediately; later ones replace the pending snapshot, which is delivered
// when the window closes. The last snapshot of a burst is never dropped, so
// a TP/SL trigger in the tail of a burst does not wait for an unrelated
// later event.
func (d *Dispatcher) admit(ctx context.Context, pair domain.Pair) {
	now := time.Now()

	d.mu.Lock()
	st, ok := d.throttle[pair.ID]
	if !ok || now.Sub(st.last) >= d.interval {
		if len(d.throttle) >= throttleMaxEntries {
			d.evictStaleLocked(now)
		}
		d.throttle[pair.ID] = &throttleState{last: now}
		d.mu.Unlock()
		d.upsertAndRoute(ctx, pair)
		return
	}

	snapshot := pair
	schedule := st.pending == nil
	st.pending = &snapshot
	delay := st.last.Add(d.interval).Sub(now)
	d.mu.Unlock()

	if schedule {
		time.AfterFunc(delay, func() { d.flushPending(ctx, pair.ID) })
	}
}

// flushPending delivers the trailing-edge snapshot for one pair, if any.
func (d *Dispatcher) flushPending(ctx context.Context, pairID string) {
	d.mu.Lock()
	st, ok := d.throttle[pairID]
	if !ok || st.pending == nil {
		d.mu.Unlock()
		return
	}
	pair := *st.pending
	st.pending = nil
	st.last = time.Now()
	d.mu.Unlock()

	d.upsertAndRoute(ctx, pair)
}

func (d *Dispatcher) evictStaleLocked(now time.Time) {
	for id, st := range d.throttle {
		if st.pending == nil && now.Sub(st.last) >= d.interval {
			delete(d.throttle, id)
		}
	}
}

// upsertAndRoute persists the snapshot and hands it to the handler in its
// own goroutine. A decision can block for minutes waiting on a mined swap;
// routing each pair event separately keeps one pair's in-flight transaction
// from stalling every other pair behind the read loop. Concurrent attempts
// for the same pair are serialized by the intent status locks, not here.
func (d *Dispatcher) upsertAndRoute(ctx context.Context, pair domain.Pair) {
	err := d.pairs.Update(ctx, pair)
	switch {
	case err == nil:
		go d.handler.HandlePairUpdated(ctx, pair)
	case errors.Is(err, domain.ErrNotFound):
		d.createAndRoute(ctx, pair)
	default:
		d.logger.Error("pair update failed",
			slog.String("pair", pair.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (d *Dispatcher) createAndRoute(ctx context.Context, pair domain.Pair) {
	err := d.pairs.Create(ctx, pair)
	switch {
	case err == nil:
		d.logger.Info("new pool discovered",
			slog.String("pair", pair.ID),
			slog.String("name", pair.Name()),
			slog.Float64("liquidity_usd", pair.LiquidityUSD),
		)
		go d.handler.HandlePairCreated(ctx, pair)
	case errors.Is(err, domain.ErrAlreadyExists):
		// Lost a create race with a concurrent event for the same pool.
		d.logger.Warn("duplicate pool creation skipped", slog.String("pair", pair.ID))
	default:
		d.logger.Error("pair create failed",
			slog.String("pair", pair.ID),
			slog.String("error", err.Error()),
		)
	}
}
