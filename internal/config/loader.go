package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DEXSNIPER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DEXSNIPER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "DEXSNIPER_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "DEXSNIPER_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "DEXSNIPER_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "DEXSNIPER_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "DEXSNIPER_CHAIN_CHAIN_ID")
	setStr(&cfg.Chain.RouterAddress, "DEXSNIPER_CHAIN_ROUTER_ADDRESS")
	setStr(&cfg.Chain.FactoryAddress, "DEXSNIPER_CHAIN_FACTORY_ADDRESS")

	// ── Feed ──
	setStr(&cfg.Feed.URL, "DEXSNIPER_FEED_URL")
	setStr(&cfg.Feed.Chain, "DEXSNIPER_FEED_CHAIN")
	setStr(&cfg.Feed.Channel, "DEXSNIPER_FEED_CHANNEL")

	// ── Oracle ──
	setStr(&cfg.Oracle.BinanceHost, "DEXSNIPER_ORACLE_BINANCE_HOST")
	setDuration(&cfg.Oracle.CacheTTL, "DEXSNIPER_ORACLE_CACHE_TTL")
	setStringSlice(&cfg.Oracle.NativeSymbols, "DEXSNIPER_ORACLE_NATIVE_SYMBOLS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "DEXSNIPER_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DEXSNIPER_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "DEXSNIPER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "DEXSNIPER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "DEXSNIPER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "DEXSNIPER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "DEXSNIPER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "DEXSNIPER_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "DEXSNIPER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "DEXSNIPER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "DEXSNIPER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "DEXSNIPER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DEXSNIPER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DEXSNIPER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DEXSNIPER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DEXSNIPER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DEXSNIPER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "DEXSNIPER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "DEXSNIPER_S3_REGION")
	setStr(&cfg.S3.Bucket, "DEXSNIPER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "DEXSNIPER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "DEXSNIPER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "DEXSNIPER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "DEXSNIPER_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "DEXSNIPER_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.RawFlushInterval, "DEXSNIPER_ARCHIVE_RAW_FLUSH_INTERVAL")
	setDuration(&cfg.Archive.TradeRetention, "DEXSNIPER_ARCHIVE_TRADE_RETENTION")

	// ── Risk ──
	setFloat64(&cfg.Risk.MinPairBudgetUSD, "DEXSNIPER_RISK_MIN_PAIR_BUDGET_USD")
	setFloat64(&cfg.Risk.MaxPairBudgetUSD, "DEXSNIPER_RISK_MAX_PAIR_BUDGET_USD")
	setFloat64(&cfg.Risk.MaxVolPercentOfLP, "DEXSNIPER_RISK_MAX_VOL_PERCENT_OF_LP")
	setFloat64(&cfg.Risk.SafeLPSizeUSD, "DEXSNIPER_RISK_SAFE_LP_SIZE_USD")
	setFloat64(&cfg.Risk.SlippageTolerantPercent, "DEXSNIPER_RISK_SLIPPAGE_TOLERANT_PERCENT")
	setFloat64(&cfg.Risk.TPTarget, "DEXSNIPER_RISK_TP_TARGET")
	setFloat64(&cfg.Risk.SLTarget, "DEXSNIPER_RISK_SL_TARGET")
	setFloat64(&cfg.Risk.FixedGasPriceGwei, "DEXSNIPER_RISK_FIXED_GAS_PRICE_GWEI")

	// ── Scope ──
	setStr(&cfg.Scope.Mode, "DEXSNIPER_SCOPE_MODE")
	setStr(&cfg.Scope.SinglePair, "DEXSNIPER_SCOPE_SINGLE_PAIR")
	setStringSlice(&cfg.Scope.Contracts, "DEXSNIPER_SCOPE_CONTRACTS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "DEXSNIPER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "DEXSNIPER_SERVER_PORT")
	setStr(&cfg.Server.AuthToken, "DEXSNIPER_SERVER_AUTH_TOKEN")
	setStringSlice(&cfg.Server.CORSOrigins, "DEXSNIPER_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "DEXSNIPER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "DEXSNIPER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "DEXSNIPER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "DEXSNIPER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "DEXSNIPER_MODE")
	setStr(&cfg.LogLevel, "DEXSNIPER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
