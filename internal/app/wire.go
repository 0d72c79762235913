package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	s3blob "github.com/sniperlabs/dexsniper/internal/blob/s3"
	"github.com/sniperlabs/dexsniper/internal/cache/redis"
	"github.com/sniperlabs/dexsniper/internal/config"
	"github.com/sniperlabs/dexsniper/internal/domain"
	"github.com/sniperlabs/dexsniper/internal/notify"
	"github.com/sniperlabs/dexsniper/internal/store/postgres"
)

// Dependencies holds all shared infrastructure built by Wire: stores, caches,
// the event bus, cold storage, and notifications. The per-mode wiring in
// modes.go builds the trading runtime on top of these.
type Dependencies struct {
	// Postgres stores.
	Pairs          domain.PairStore
	Intents        domain.IntentStore
	Trades         *postgres.TradeHistoryStore // concrete: the archiver needs ListBefore
	Risk           domain.RiskDirectiveStore
	ActivePairs    domain.ActivePairStore
	QuoteSymbols   domain.QuoteSymbolStore
	ScopeContracts domain.ScopeContractStore

	// Redis-backed components.
	PriceCache domain.PriceCache
	Bus        *redis.SignalBus
	Limiter    domain.RateLimiter

	// Cold storage. All nil when archiving is disabled.
	BlobWriter *s3blob.Writer
	BlobReader *s3blob.Reader
	Archiver   *s3blob.Archiver

	// Notifier is always non-nil; with no senders configured it is a no-op.
	Notifier *notify.Notifier
}

// Wire builds all shared dependencies from the configuration. It returns a
// cleanup function that closes every opened connection; the caller runs it on
// shutdown regardless of whether Wire's caller succeeded afterwards.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	deps := &Dependencies{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- PostgreSQL ---
	pg, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pg.Close)
	logger.InfoContext(ctx, "postgres connected", slog.String("database", cfg.Postgres.Database))

	if cfg.Postgres.RunMigrations {
		if err := pg.RunMigrations(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("wire: migrations: %w", err)
		}
		logger.InfoContext(ctx, "migrations applied")
	}

	pool := pg.Pool()
	deps.Pairs = postgres.NewPairStore(pool)
	deps.Intents = postgres.NewIntentStore(pool)
	deps.Trades = postgres.NewTradeHistoryStore(pool)
	deps.Risk = postgres.NewRiskDirectiveStore(pool)
	deps.ActivePairs = postgres.NewActivePairStore(pool)
	deps.QuoteSymbols = postgres.NewQuoteSymbolStore(pool)
	deps.ScopeContracts = postgres.NewScopeContractStore(pool)

	if err := seedRiskDirective(ctx, deps.Risk, cfg.Risk, logger); err != nil {
		return nil, cleanup, err
	}
	if err := seedQuoteSymbols(ctx, deps.QuoteSymbols, cfg.QuoteSymbols, logger); err != nil {
		return nil, cleanup, err
	}

	// --- Redis ---
	rc, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = rc.Close() })
	logger.InfoContext(ctx, "redis connected", slog.String("addr", cfg.Redis.Addr))

	deps.PriceCache = redis.NewPriceCache(rc, cfg.Oracle.CacheTTL.Duration)
	deps.Bus = redis.NewSignalBus(rc)
	deps.Limiter = redis.NewRateLimiter(rc)

	// --- S3 cold storage ---
	if cfg.Archive.Enabled {
		blob, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = blob.Close() })

		if err := blob.Health(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("wire: s3 health: %w", err)
		}
		logger.InfoContext(ctx, "s3 connected", slog.String("bucket", cfg.S3.Bucket))

		deps.BlobWriter = s3blob.NewWriter(blob)
		deps.BlobReader = s3blob.NewReader(blob)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.Trades, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// seedRiskDirective writes the configured risk directive on first boot. Once
// a row exists the database is authoritative and the config values are
// ignored, so operator changes made through the API survive restarts.
func seedRiskDirective(ctx context.Context, store domain.RiskDirectiveStore, cfg config.Risk, logger *slog.Logger) error {
	_, err := store.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("wire: read risk directive: %w", err)
	}

	var gas *float64
	if cfg.FixedGasPriceGwei > 0 {
		v := cfg.FixedGasPriceGwei
		gas = &v
	}
	d := domain.RiskDirective{
		MinPairBudgetUSD:        cfg.MinPairBudgetUSD,
		MaxPairBudgetUSD:        cfg.MaxPairBudgetUSD,
		MaxVolPercentOfLP:       cfg.MaxVolPercentOfLP,
		SafeLPSizeUSD:           cfg.SafeLPSizeUSD,
		SlippageTolerantPercent: cfg.SlippageTolerantPercent,
		TPTarget:                cfg.TPTarget,
		SLTarget:                cfg.SLTarget,
		FixedGasPriceGwei:       gas,
	}
	if err := store.Upsert(ctx, d); err != nil {
		return fmt.Errorf("wire: seed risk directive: %w", err)
	}
	logger.InfoContext(ctx, "risk directive seeded from config")
	return nil
}

// seedQuoteSymbols writes the configured quote-token allow-list when the
// store is empty.
func seedQuoteSymbols(ctx context.Context, store domain.QuoteSymbolStore, cfg []config.QuoteSymbolConfig, logger *slog.Logger) error {
	existing, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("wire: read quote symbols: %w", err)
	}
	if len(existing) > 0 || len(cfg) == 0 {
		return nil
	}

	symbols := make([]domain.QuoteSymbol, 0, len(cfg))
	for _, q := range cfg {
		symbols = append(symbols, domain.QuoteSymbol{
			Symbol:        q.Symbol,
			Address:       q.Address,
			Decimals:      q.Decimals,
			IsStable:      q.IsStable,
			BinanceSymbol: q.BinanceSymbol,
		})
	}
	if err := store.Replace(ctx, symbols); err != nil {
		return fmt.Errorf("wire: seed quote symbols: %w", err)
	}
	logger.InfoContext(ctx, "quote symbol allow-list seeded from config", slog.Int("count", len(symbols)))
	return nil
}
