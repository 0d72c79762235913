package engine

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// ---------------------------------------------------------------------------
// In-memory stores mirroring the postgres semantics, including the
// status-guarded conditional updates the engine's locking relies on.
// ---------------------------------------------------------------------------

type memIntentStore struct {
	mu      sync.Mutex
	byID    map[string]*domain.TradingIntent
	failOps map[string]error // op name -> injected error
}

func newMemIntentStore() *memIntentStore {
	return &memIntentStore{
		byID:    make(map[string]*domain.TradingIntent),
		failOps: make(map[string]error),
	}
}

func (s *memIntentStore) Create(_ context.Context, intent domain.TradingIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps["create"]; err != nil {
		return err
	}
	for _, existing := range s.byID {
		if existing.PairID == intent.PairID && !existing.Status.Terminal() {
			return domain.ErrAlreadyExists
		}
	}
	cp := intent
	s.byID[intent.ID] = &cp
	return nil
}

func (s *memIntentStore) FindByPairAndStatus(_ context.Context, pairID string, status domain.IntentStatus) (domain.TradingIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps["find"]; err != nil {
		return domain.TradingIntent{}, err
	}
	for _, intent := range s.byID {
		if intent.PairID == pairID && intent.Status == status {
			return *intent, nil
		}
	}
	return domain.TradingIntent{}, domain.ErrNotFound
}

func (s *memIntentStore) TransitionStatus(_ context.Context, id string, from, to domain.IntentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps["transition:"+string(from)+">"+string(to)]; err != nil {
		return err
	}
	intent, ok := s.byID[id]
	if !ok || intent.Status != from {
		return domain.ErrStatusConflict
	}
	intent.Status = to
	return nil
}

func (s *memIntentStore) RecordEntry(_ context.Context, id string, entry, vol float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps["recordEntry"]; err != nil {
		return err
	}
	intent, ok := s.byID[id]
	if !ok || intent.Status != domain.StatusTakingEntry {
		return domain.ErrStatusConflict
	}
	intent.Status = domain.StatusFindingExit
	intent.Entry = &entry
	intent.Vol = &vol
	return nil
}

func (s *memIntentStore) RecordExit(_ context.Context, id string, terminal domain.IntentStatus, exitPrice, profitPercent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps["recordExit"]; err != nil {
		return err
	}
	intent, ok := s.byID[id]
	if !ok || intent.Status != domain.StatusTakingExit {
		return domain.ErrStatusConflict
	}
	intent.Status = terminal
	intent.ProfitPercent = &profitPercent
	switch terminal {
	case domain.StatusTP:
		intent.TP = &exitPrice
	case domain.StatusSL:
		intent.SL = &exitPrice
	}
	return nil
}

func (s *memIntentStore) ListByStatus(_ context.Context, status domain.IntentStatus) ([]domain.TradingIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TradingIntent
	for _, intent := range s.byID {
		if intent.Status == status {
			out = append(out, *intent)
		}
	}
	return out, nil
}

// byPair returns the single intent for a pair, terminal or not.
func (s *memIntentStore) byPair(pairID string) (domain.TradingIntent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, intent := range s.byID {
		if intent.PairID == pairID {
			return *intent, true
		}
	}
	return domain.TradingIntent{}, false
}

func (s *memIntentStore) activeCount(pairID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, intent := range s.byID {
		if intent.PairID == pairID && !intent.Status.Terminal() {
			n++
		}
	}
	return n
}

type memHistoryStore struct {
	mu     sync.Mutex
	rows   []domain.TradeHistoryEntry
	insert error
}

func (s *memHistoryStore) Insert(_ context.Context, t domain.TradeHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insert != nil {
		return s.insert
	}
	s.rows = append(s.rows, t)
	return nil
}

func (s *memHistoryStore) ListRecent(_ context.Context, limit int) ([]domain.TradeHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.rows) {
		limit = len(s.rows)
	}
	return append([]domain.TradeHistoryEntry(nil), s.rows[len(s.rows)-limit:]...), nil
}

type memQuoteSymbolStore struct {
	mu      sync.Mutex
	symbols []domain.QuoteSymbol
	listErr error
}

func (s *memQuoteSymbolStore) List(_ context.Context) ([]domain.QuoteSymbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]domain.QuoteSymbol(nil), s.symbols...), nil
}

func (s *memQuoteSymbolStore) Replace(_ context.Context, symbols []domain.QuoteSymbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols = append([]domain.QuoteSymbol(nil), symbols...)
	return nil
}

type memActivePairStore struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newMemActivePairStore() *memActivePairStore {
	return &memActivePairStore{ids: make(map[string]struct{})}
}

func (s *memActivePairStore) Add(_ context.Context, pairID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[pairID] = struct{}{}
	return nil
}

func (s *memActivePairStore) Remove(_ context.Context, pairID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, pairID)
	return nil
}

func (s *memActivePairStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out, nil
}

type memRiskStore struct {
	mu        sync.Mutex
	directive *domain.RiskDirective
}

func (s *memRiskStore) Get(_ context.Context) (domain.RiskDirective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.directive == nil {
		return domain.RiskDirective{}, domain.ErrNotFound
	}
	return *s.directive, nil
}

func (s *memRiskStore) Upsert(_ context.Context, d domain.RiskDirective) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directive = &d
	return nil
}

type memScopeContractStore struct {
	mu        sync.Mutex
	contracts map[string]struct{}
}

func newMemScopeContractStore() *memScopeContractStore {
	return &memScopeContractStore{contracts: make(map[string]struct{})}
}

func (s *memScopeContractStore) Add(_ context.Context, contract string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[contract] = struct{}{}
	return nil
}

func (s *memScopeContractStore) Remove(_ context.Context, contract string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contracts, contract)
	return nil
}

func (s *memScopeContractStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.contracts))
	for c := range s.contracts {
		out = append(out, c)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Trading collaborators
// ---------------------------------------------------------------------------

type fakeQuoter struct {
	mu        sync.Mutex
	execPrice float64
	impact    float64
	err       error
	calls     []domain.Quote
}

func (q *fakeQuoter) Quote(_ context.Context, sell, buy domain.Token, sellAmount float64, _ int) (domain.Quote, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return domain.Quote{}, q.err
	}
	quote := domain.Quote{
		SellToken:          sell,
		BuyToken:           buy,
		SellAmount:         sellAmount,
		ExecutionPrice:     q.execPrice,
		MidPrice:           q.execPrice,
		PriceImpactPercent: q.impact,
		MinimumOut:         sellAmount * q.execPrice,
	}
	q.calls = append(q.calls, quote)
	return quote, nil
}

type fakeSwapper struct {
	mu         sync.Mutex
	err        error
	executed   []domain.Quote
	balance    *float64 // nil = unlimited
	balanceErr error
}

func (s *fakeSwapper) ExecuteSwap(_ context.Context, q domain.Quote, _ domain.SwapOptions) (domain.SwapResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.SwapResult{}, s.err
	}
	s.executed = append(s.executed, q)
	return domain.SwapResult{TxHash: "0xtest"}, nil
}

func (s *fakeSwapper) TokenBalance(_ context.Context, _ domain.Token) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balanceErr != nil {
		return 0, s.balanceErr
	}
	if s.balance != nil {
		return *s.balance, nil
	}
	return math.MaxFloat64, nil
}

type fakeOracle struct {
	prices map[string]float64
}

func (o *fakeOracle) PriceUSD(_ context.Context, symbol, _ string) (float64, error) {
	if p, ok := o.prices[symbol]; ok {
		return p, nil
	}
	return 0, domain.ErrPriceUnavailable
}

type fakeBus struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels = append(b.channels, channel)
	b.payloads = append(b.payloads, payload)
	return nil
}

type fakeAlerter struct {
	mu     sync.Mutex
	titles []string
}

func (a *fakeAlerter) Alert(_ context.Context, title, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.titles = append(a.titles, title)
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type harness struct {
	engine  *Engine
	intents *memIntentStore
	history *memHistoryStore
	quoter  *fakeQuoter
	swapper *fakeSwapper
	oracle  *fakeOracle
	bus     *fakeBus
	alerter *fakeAlerter
	tracker *ActivePairSet
	scope   *TradeScope
	risk    *memRiskStore
	cache   *DirectiveCache
}

const (
	wbnbAddress = "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c"
	newAddress  = "0x234e1d120bffdcba913b89082979d4caa51de22f"
)

func testDirective() domain.RiskDirective {
	return domain.RiskDirective{
		MinPairBudgetUSD:        10,
		MaxPairBudgetUSD:        100,
		MaxVolPercentOfLP:       10,
		SafeLPSizeUSD:           50_000,
		SlippageTolerantPercent: 5,
		TPTarget:                2.0,
		SLTarget:                0.5,
	}
}

func testPair() domain.Pair {
	return domain.Pair{
		ID:         "NEW_WBNB_56_pancakev2",
		Base:       "NEW",
		Quote:      "WBNB",
		ChainID:    56,
		ExchangeID: "pancakev2",
		Token0:     domain.Token{Address: newAddress, Symbol: "NEW", Decimals: 18},
		Token1:     domain.Token{Address: wbnbAddress, Symbol: "WBNB", Decimals: 18},
		Reserve0:   1_000_000,
		Reserve1:   500,

		LiquidityUSD: 100_000,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := discardLogger()
	ctx := context.Background()

	symbolStore := &memQuoteSymbolStore{symbols: []domain.QuoteSymbol{
		{Symbol: "WBNB", Address: wbnbAddress, Decimals: 18, BinanceSymbol: "BNBUSDT"},
		{Symbol: "BUSD", Address: "0xe9e7cea3dedca5984780bafc599bd69add087d56", Decimals: 18, IsStable: true},
	}}
	registry := NewQuoteSymbolRegistry(symbolStore, logger)
	if err := registry.Reload(ctx); err != nil {
		t.Fatalf("reload registry: %v", err)
	}

	risk := &memRiskStore{}
	d := testDirective()
	risk.directive = &d
	cache := NewDirectiveCache(risk, logger)
	if err := cache.Refresh(ctx); err != nil {
		t.Fatalf("refresh directive: %v", err)
	}

	h := &harness{
		intents: newMemIntentStore(),
		history: &memHistoryStore{},
		quoter:  &fakeQuoter{execPrice: 1000}, // base tokens per quote token
		swapper: &fakeSwapper{},
		oracle:  &fakeOracle{prices: map[string]float64{"WBNB": 300, "BUSD": 1}},
		bus:     &fakeBus{},
		alerter: &fakeAlerter{},
		tracker: NewActivePairSet(newMemActivePairStore(), logger),
		scope:   NewTradeScope(newMemScopeContractStore(), ScopeAll, "", logger),
		risk:    risk,
		cache:   cache,
	}
	h.engine = New(Deps{
		Tracker:   h.tracker,
		Registry:  registry,
		Directive: h.cache,
		Scope:     h.scope,
		Intents:   h.intents,
		History:   h.history,
		Quoter:    h.quoter,
		Swapper:   h.swapper,
		Oracle:    h.oracle,
		Bus:       h.bus,
		Alerter:   h.alerter,
		Logger:    logger,
	})
	return h
}

// enterPosition drives a full successful entry so exit tests start from a
// FindingExit intent.
func (h *harness) enterPosition(ctx context.Context, pair domain.Pair) {
	h.engine.HandlePairCreated(ctx, pair)
}
