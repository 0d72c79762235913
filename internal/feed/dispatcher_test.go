package feed

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

type fakePairStore struct {
	mu    sync.Mutex
	pairs map[string]domain.Pair
}

func newFakePairStore() *fakePairStore {
	return &fakePairStore{pairs: make(map[string]domain.Pair)}
}

func (s *fakePairStore) Create(_ context.Context, p domain.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pairs[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.pairs[p.ID] = p
	return nil
}

func (s *fakePairStore) Update(_ context.Context, p domain.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pairs[p.ID]; !ok {
		return domain.ErrNotFound
	}
	s.pairs[p.ID] = p
	return nil
}

func (s *fakePairStore) GetByID(_ context.Context, id string) (domain.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pairs[id]
	if !ok {
		return domain.Pair{}, domain.ErrNotFound
	}
	return p, nil
}

// recordingHandler captures routed events. Handlers run in their own
// goroutines, so everything is mutex guarded and tests poll the accessors.
type recordingHandler struct {
	mu      sync.Mutex
	created []domain.Pair
	updated []domain.Pair
}

func (h *recordingHandler) HandlePairCreated(_ context.Context, p domain.Pair) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = append(h.created, p)
}

func (h *recordingHandler) HandlePairUpdated(_ context.Context, p domain.Pair) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updated = append(h.updated, p)
}

func (h *recordingHandler) createdIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.created))
	for i, p := range h.created {
		out[i] = p.ID
	}
	return out
}

func (h *recordingHandler) updatedPairs() []domain.Pair {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Pair(nil), h.updated...)
}

type recordingPriceSink struct {
	prices []float64
}

func (s *recordingPriceSink) SetNativePrice(_ context.Context, priceUsd float64) {
	s.prices = append(s.prices, priceUsd)
}

func newTestDispatcher() (*Dispatcher, *fakePairStore, *recordingHandler, *recordingPriceSink) {
	store := newFakePairStore()
	handler := &recordingHandler{}
	sink := &recordingPriceSink{}
	d := NewDispatcher(store, handler, sink, slog.New(slog.DiscardHandler))
	d.interval = 50 * time.Millisecond
	return d, store, handler, sink
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestDispatchCreatesThenUpdates(t *testing.T) {
	d, store, handler, _ := newTestDispatcher()
	ctx := context.Background()

	d.Dispatch(ctx, []byte(poolUpdateMsg))
	eventually(t, func() bool {
		return len(handler.createdIDs()) == 1
	}, "first event for an unknown pool routes as created")
	assert.Equal(t, []string{"STCK_WBNB_56_pancakev2"}, handler.createdIDs())
	assert.Empty(t, handler.updatedPairs())

	_, err := store.GetByID(ctx, "STCK_WBNB_56_pancakev2")
	require.NoError(t, err)

	// Same pool again after the throttle window is an update, not a create.
	d.mu.Lock()
	d.throttle = make(map[string]*throttleState)
	d.mu.Unlock()
	d.Dispatch(ctx, []byte(poolUpdateMsg))
	eventually(t, func() bool {
		return len(handler.updatedPairs()) == 1
	}, "known pool routes as updated")
	assert.Len(t, handler.createdIDs(), 1)
}

func TestDispatchRoutesNativePrice(t *testing.T) {
	d, _, handler, sink := newTestDispatcher()

	d.Dispatch(context.Background(), []byte(nativePriceMsg))

	assert.Equal(t, []float64{284.35}, sink.prices)
	assert.Empty(t, handler.createdIDs())
}

func TestThrottleDeliversTrailingSnapshot(t *testing.T) {
	d, _, handler, _ := newTestDispatcher()
	d.interval = 250 * time.Millisecond
	ctx := context.Background()

	// Three snapshots inside one window: the first routes immediately, the
	// middle one is coalesced away, the last is delivered when the window
	// closes.
	second := strings.Replace(poolUpdateMsg, "31060.719075125737", "28000.5", 1)
	last := strings.Replace(poolUpdateMsg, "31060.719075125737", "24500.25", 1)
	d.Dispatch(ctx, []byte(poolUpdateMsg))
	d.Dispatch(ctx, []byte(second))
	d.Dispatch(ctx, []byte(last))

	eventually(t, func() bool {
		return len(handler.updatedPairs()) == 1
	}, "trailing snapshot must flush at the window's end")

	assert.Len(t, handler.createdIDs(), 1, "leading edge routed once")
	updated := handler.updatedPairs()
	assert.InDelta(t, 24500.25, updated[0].LiquidityUSD, 1e-9,
		"the flush carries the newest snapshot of the burst")
}

func TestDispatchIgnoresGarbage(t *testing.T) {
	d, _, handler, sink := newTestDispatcher()

	d.Dispatch(context.Background(), []byte("not json"))
	d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","result":{"status":"error","data":{}}}`))

	assert.Empty(t, handler.createdIDs())
	assert.Empty(t, handler.updatedPairs())
	assert.Empty(t, sink.prices)
}

func TestThrottleEvictsStaleEntries(t *testing.T) {
	d, _, _, _ := newTestDispatcher()

	stale := time.Now().Add(-2 * d.interval)
	for i := 0; i < throttleMaxEntries; i++ {
		d.throttle[domain.PairID("T", "WBNB", 56, "pancakev2")+string(rune(i))] = &throttleState{last: stale}
	}
	// An entry still holding a pending snapshot must survive eviction.
	pinned := testThrottlePair()
	d.throttle["pinned"] = &throttleState{last: stale, pending: &pinned}

	d.Dispatch(context.Background(), []byte(poolUpdateMsg))

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Less(t, len(d.throttle), throttleMaxEntries)
	assert.Contains(t, d.throttle, "pinned")
}

func testThrottlePair() domain.Pair {
	return domain.Pair{ID: "pinned", ExchangeID: "pancakev2"}
}

// blockingHandler simulates an in-flight swap: the creation handler for one
// pair parks until released.
type blockingHandler struct {
	recordingHandler
	blockID string
	release chan struct{}
}

func (h *blockingHandler) HandlePairCreated(ctx context.Context, p domain.Pair) {
	if p.ID == h.blockID {
		<-h.release
	}
	h.recordingHandler.HandlePairCreated(ctx, p)
}

func TestInFlightDecisionDoesNotStallOtherPairs(t *testing.T) {
	store := newFakePairStore()
	handler := &blockingHandler{
		blockID: "STCK_WBNB_56_pancakev2",
		release: make(chan struct{}),
	}
	d := NewDispatcher(store, handler, &recordingPriceSink{}, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	otherPoolMsg := strings.Replace(poolUpdateMsg, "STCK", "OTHR", 1)
	d.Dispatch(ctx, []byte(poolUpdateMsg)) // decision for this pair hangs
	d.Dispatch(ctx, []byte(otherPoolMsg))

	eventually(t, func() bool {
		ids := handler.createdIDs()
		return len(ids) == 1 && ids[0] == "OTHR_WBNB_56_pancakev2"
	}, "second pair must route while the first pair's decision is in flight")

	close(handler.release)
	eventually(t, func() bool {
		return len(handler.createdIDs()) == 2
	}, "blocked pair completes once its decision returns")
}
