package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/sniperlabs/dexsniper/internal/crypto"
	"github.com/sniperlabs/dexsniper/internal/dex/pancake"
	"github.com/sniperlabs/dexsniper/internal/domain"
	"github.com/sniperlabs/dexsniper/internal/engine"
	"github.com/sniperlabs/dexsniper/internal/feed"
	"github.com/sniperlabs/dexsniper/internal/oracle"
	"github.com/sniperlabs/dexsniper/internal/server"
	"github.com/sniperlabs/dexsniper/internal/server/handler"
	"github.com/sniperlabs/dexsniper/internal/server/ws"
)

// tradeArchiveInterval is how often trade history older than the retention
// window is dumped to cold storage.
const tradeArchiveInterval = 24 * time.Hour

// controls are the in-memory control-plane caches shared by the engine and
// the admin API: the pair tracker, the quote-symbol allow-list, the risk
// directive, and the trading scope.
type controls struct {
	tracker   *engine.ActivePairSet
	registry  *engine.QuoteSymbolRegistry
	directive *engine.DirectiveCache
	scope     *engine.TradeScope
}

// buildControls loads the control-plane state from the stores. An empty
// quote-symbol allow-list is fatal: without quote tokens no side of any pair
// can ever be priced.
func (a *App) buildControls(ctx context.Context, deps *Dependencies) (*controls, error) {
	registry := engine.NewQuoteSymbolRegistry(deps.QuoteSymbols, a.logger)
	if err := registry.Reload(ctx); err != nil {
		return nil, fmt.Errorf("app: load quote symbols: %w", err)
	}

	tracker := engine.NewActivePairSet(deps.ActivePairs, a.logger)
	if err := tracker.Load(ctx); err != nil {
		return nil, fmt.Errorf("app: load active pairs: %w", err)
	}

	directive := engine.NewDirectiveCache(deps.Risk, a.logger)
	if err := directive.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("app: load risk directive: %w", err)
	}

	mode, err := engine.ParseScopeMode(a.cfg.Scope.Mode)
	if err != nil {
		return nil, fmt.Errorf("app: scope: %w", err)
	}
	scope := engine.NewTradeScope(deps.ScopeContracts, mode, a.cfg.Scope.SinglePair, a.logger)
	if err := scope.Load(ctx); err != nil {
		return nil, fmt.Errorf("app: load scope contracts: %w", err)
	}
	for _, contract := range a.cfg.Scope.Contracts {
		if err := scope.SetContract(ctx, contract, true); err != nil {
			return nil, fmt.Errorf("app: seed scope contract %s: %w", contract, err)
		}
	}

	return &controls{
		tracker:   tracker,
		registry:  registry,
		directive: directive,
		scope:     scope,
	}, nil
}

// buildOracle assembles the USD price oracle on top of the quote-symbol
// registry, the Redis price cache, and the Binance spot ticker.
func (a *App) buildOracle(deps *Dependencies, ctl *controls) *oracle.Oracle {
	binance := oracle.NewBinanceClient(a.cfg.Oracle.BinanceHost)
	return oracle.New(
		int(a.cfg.Chain.ChainID),
		ctl.registry,
		deps.PriceCache,
		binance,
		a.cfg.Oracle.NativeSymbols,
		a.logger,
	)
}

// buildEngine dials the chain node, loads the signing wallet, and assembles
// the decision engine with the PancakeSwap quoter and executor.
func (a *App) buildEngine(ctx context.Context, deps *Dependencies, ctl *controls, orc *oracle.Oracle) (*engine.Engine, error) {
	eth, err := ethclient.DialContext(ctx, a.cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("app: dial chain node: %w", err)
	}
	a.closers = append(a.closers, eth.Close)

	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    a.cfg.Wallet.PrivateKey,
		EncryptedKeyPath: a.cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("app: load key: %w", err)
	}
	wallet, err := crypto.NewWallet(keyHex, a.cfg.Chain.ChainID)
	if err != nil {
		return nil, fmt.Errorf("app: wallet: %w", err)
	}
	a.logger.InfoContext(ctx, "wallet loaded", slog.String("address", wallet.Address().Hex()))

	quoter := pancake.NewQuoter(eth, common.HexToAddress(a.cfg.Chain.FactoryAddress), a.logger)
	executor := pancake.NewExecutor(eth, common.HexToAddress(a.cfg.Chain.RouterAddress), wallet, a.logger)

	return engine.New(engine.Deps{
		Tracker:   ctl.tracker,
		Registry:  ctl.registry,
		Directive: ctl.directive,
		Scope:     ctl.scope,
		Intents:   deps.Intents,
		History:   deps.Trades,
		Quoter:    quoter,
		Swapper:   executor,
		Oracle:    orc,
		Bus:       deps.Bus,
		Alerter:   deps.Notifier,
		Logger:    a.logger,
	}), nil
}

// buildFeed assembles the dextools stream and its dispatcher for the given
// pair handler. When archiving is enabled every raw message is also buffered
// for cold storage before dispatch.
func (a *App) buildFeed(deps *Dependencies, handler feed.PairHandler, orc *oracle.Oracle) *feed.DextoolsFeed {
	dispatcher := feed.NewDispatcher(deps.Pairs, handler, orc, a.logger)

	msgHandler := feed.MessageHandler(dispatcher.Dispatch)
	if deps.Archiver != nil {
		archiver := deps.Archiver
		msgHandler = func(ctx context.Context, raw []byte) {
			archiver.BufferRawEvent(raw)
			dispatcher.Dispatch(ctx, raw)
		}
	}

	return feed.NewDextoolsFeed(a.cfg.Feed.URL, a.cfg.Feed.Chain, a.cfg.Feed.Channel, msgHandler, a.logger)
}

// startArchiver schedules the raw-event flusher and the periodic trade
// history dump when archiving is enabled.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	archiver := deps.Archiver
	retention := a.cfg.Archive.TradeRetention.Duration

	g.Go(func() error {
		return archiver.Run(ctx, a.cfg.Archive.RawFlushInterval.Duration)
	})

	if retention <= 0 {
		return
	}
	g.Go(func() error {
		ticker := time.NewTicker(tradeArchiveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := archiver.ArchiveTrades(ctx, time.Now().Add(-retention)); err != nil {
					a.logger.Error("trade archive failed", slog.String("error", err.Error()))
				}
			}
		}
	})
}

// startHTTPServer builds the admin API and WebSocket hub and schedules their
// goroutines, including a graceful shutdown tied to the group context.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, ctl *controls) {
	hub := ws.NewHub(deps.Bus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error { return hub.Run(ctx) })

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			AuthToken:   a.cfg.Server.AuthToken,
		},
		server.Handlers{
			Health:       handler.NewHealthHandler(a.logger),
			Intents:      handler.NewIntentHandler(deps.Intents, a.logger),
			Trades:       handler.NewTradeHandler(deps.Trades, a.logger),
			Risk:         handler.NewRiskHandler(ctl.directive, a.logger),
			Scope:        handler.NewScopeHandler(ctl.scope, a.logger),
			QuoteSymbols: handler.NewQuoteSymbolHandler(ctl.registry, a.logger),
			Pairs:        handler.NewPairHandler(deps.Pairs, ctl.tracker, a.logger),
			Archive:      handler.NewArchiveHandler(deps.BlobReader, a.logger),
		},
		hub,
		deps.Limiter,
		a.logger,
	)

	g.Go(func() error { return srv.Start() })
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// TradeMode runs the full trading loop without the admin API: feed, decision
// engine, directive refresh, and archival.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	ctl, err := a.buildControls(ctx, deps)
	if err != nil {
		return err
	}
	orc := a.buildOracle(deps, ctl)
	eng, err := a.buildEngine(ctx, deps, ctl, orc)
	if err != nil {
		return err
	}
	stream := a.buildFeed(deps, eng, orc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return stream.Run(ctx) })
	g.Go(func() error { return ctl.directive.Run(ctx) })
	a.startArchiver(ctx, g, deps)

	a.logger.Info("trade mode started")
	return g.Wait()
}

// MonitorMode consumes the feed and persists pair snapshots without making
// any trading decisions. No wallet or chain node is needed.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	ctl, err := a.buildControls(ctx, deps)
	if err != nil {
		return err
	}
	orc := a.buildOracle(deps, ctl)
	stream := a.buildFeed(deps, &pairWatcher{logger: a.logger}, orc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return stream.Run(ctx) })
	a.startArchiver(ctx, g, deps)

	a.logger.Info("monitor mode started")
	return g.Wait()
}

// ServerMode runs only the admin API and WebSocket hub against the shared
// stores. Useful for inspecting a deployment whose trading instance runs
// elsewhere.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	ctl, err := a.buildControls(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctl.directive.Run(ctx) })
	a.startHTTPServer(ctx, g, deps, ctl)

	a.logger.Info("server mode started")
	return g.Wait()
}

// FullMode runs trading and the admin API in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	ctl, err := a.buildControls(ctx, deps)
	if err != nil {
		return err
	}
	orc := a.buildOracle(deps, ctl)
	eng, err := a.buildEngine(ctx, deps, ctl, orc)
	if err != nil {
		return err
	}
	stream := a.buildFeed(deps, eng, orc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return stream.Run(ctx) })
	g.Go(func() error { return ctl.directive.Run(ctx) })
	a.startArchiver(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, ctl)

	a.logger.Info("full mode started")
	return g.Wait()
}

// pairWatcher is the watch-only pair handler used in monitor mode. The
// dispatcher has already persisted every snapshot by the time these run.
type pairWatcher struct {
	logger *slog.Logger
}

func (w *pairWatcher) HandlePairCreated(ctx context.Context, pair domain.Pair) {
	w.logger.InfoContext(ctx, "pair created",
		slog.String("pair", pair.ID),
		slog.String("name", pair.Name()),
		slog.Float64("liquidity_usd", pair.LiquidityUSD),
	)
}

func (w *pairWatcher) HandlePairUpdated(_ context.Context, _ domain.Pair) {}
