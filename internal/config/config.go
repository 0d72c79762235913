// Package config defines the top-level configuration for the sniper bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by DEXSNIPER_* environment variables.
type Config struct {
	Wallet       Wallet              `toml:"wallet"`
	Chain        Chain               `toml:"chain"`
	Feed         Feed                `toml:"feed"`
	Oracle       Oracle              `toml:"oracle"`
	Postgres     Postgres            `toml:"postgres"`
	Redis        Redis               `toml:"redis"`
	S3           S3                  `toml:"s3"`
	Archive      Archive             `toml:"archive"`
	Risk         Risk                `toml:"risk"`
	Scope        Scope               `toml:"scope"`
	QuoteSymbols []QuoteSymbolConfig `toml:"quote_symbols"`
	Server       Server              `toml:"server"`
	Notify       Notify              `toml:"notify"`
	Mode         string              `toml:"mode"`
	LogLevel     string              `toml:"log_level"`
}

// Wallet holds the trading account's key material. Either a raw hex private
// key or an encrypted key file plus password.
type Wallet struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// Chain holds the BSC node endpoint and the PancakeSwap v2 contract
// addresses the quoter and executor talk to.
type Chain struct {
	RPCURL         string `toml:"rpc_url"`
	ChainID        int64  `toml:"chain_id"`
	RouterAddress  string `toml:"router_address"`
	FactoryAddress string `toml:"factory_address"`
}

// Feed holds the dextools websocket subscription parameters.
type Feed struct {
	URL     string `toml:"url"`
	Chain   string `toml:"chain"`
	Channel string `toml:"channel"`
}

// Oracle holds upstream price-source parameters.
type Oracle struct {
	BinanceHost   string   `toml:"binance_host"`
	CacheTTL      duration `toml:"cache_ttl"`
	NativeSymbols []string `toml:"native_symbols"`
}

// Postgres holds PostgreSQL connection parameters.
type Postgres struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Redis holds Redis connection parameters.
type Redis struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3 holds S3-compatible object storage parameters.
type S3 struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Archive holds cold-storage archival parameters.
type Archive struct {
	Enabled          bool     `toml:"enabled"`
	RawFlushInterval duration `toml:"raw_flush_interval"`
	TradeRetention   duration `toml:"trade_retention"`
}

// Risk holds the risk directive seeded into the store on first boot. After
// that the database row is authoritative and these values are ignored.
type Risk struct {
	MinPairBudgetUSD        float64 `toml:"min_pair_budget_usd"`
	MaxPairBudgetUSD        float64 `toml:"max_pair_budget_usd"`
	MaxVolPercentOfLP       float64 `toml:"max_vol_percent_of_lp"`
	SafeLPSizeUSD           float64 `toml:"safe_lp_size_usd"`
	SlippageTolerantPercent float64 `toml:"slippage_tolerant_percent"`
	TPTarget                float64 `toml:"tp_target"`
	SLTarget                float64 `toml:"sl_target"`
	FixedGasPriceGwei       float64 `toml:"fixed_gas_price_gwei"` // 0 = node-suggested
}

// Scope holds the trading scope filter applied to incoming pairs.
type Scope struct {
	Mode       string   `toml:"mode"` // all, contracts, singlePair
	SinglePair string   `toml:"single_pair"`
	Contracts  []string `toml:"contracts"`
}

// QuoteSymbolConfig is one entry of the quote-token allow-list seeded into
// the store when it is empty.
type QuoteSymbolConfig struct {
	Symbol        string `toml:"symbol"`
	Address       string `toml:"address"`
	Decimals      int    `toml:"decimals"`
	IsStable      bool   `toml:"is_stable"`
	BinanceSymbol string `toml:"binance_symbol"`
}

// Server holds HTTP server parameters.
type Server struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	AuthToken   string   `toml:"auth_token"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Notify holds notification channel credentials.
type Notify struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: Chain{
			RPCURL:         "https://bsc-dataseed.binance.org",
			ChainID:        56,
			RouterAddress:  "0x10ED43C718714eb63d5aA57B78B54704E256024E",
			FactoryAddress: "0xcA143Ce32Fe78f1f7019d7d551a6402fC5350c73",
		},
		Feed: Feed{
			URL:     "wss://ws.dextools.io/",
			Chain:   "bsc",
			Channel: "bsc:pools",
		},
		Oracle: Oracle{
			BinanceHost:   "https://api.binance.com",
			CacheTTL:      duration{5 * time.Minute},
			NativeSymbols: []string{"WBNB", "BNB"},
		},
		Postgres: Postgres{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "dexsniper",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: Redis{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "dexsniper-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: Archive{
			Enabled:          false,
			RawFlushInterval: duration{time.Hour},
			TradeRetention:   duration{90 * 24 * time.Hour},
		},
		Risk: Risk{
			MinPairBudgetUSD:        10,
			MaxPairBudgetUSD:        100,
			MaxVolPercentOfLP:       10,
			SafeLPSizeUSD:           50_000,
			SlippageTolerantPercent: 5,
			TPTarget:                2.0,
			SLTarget:                0.5,
			FixedGasPriceGwei:       0,
		},
		Scope: Scope{
			Mode: "all",
		},
		QuoteSymbols: []QuoteSymbolConfig{
			{Symbol: "WBNB", Address: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", Decimals: 18, BinanceSymbol: "BNBUSDT"},
			{Symbol: "BUSD", Address: "0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56", Decimals: 18, IsStable: true},
			{Symbol: "USDT", Address: "0x55d398326f99059fF775485246999027B3197955", Decimals: 18, IsStable: true},
		},
		Server: Server{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: Notify{
			Events: []string{"entryCreated", "tp", "sl", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"server":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validScopeModes enumerates the accepted values for Scope.Mode.
var validScopeModes = map[string]bool{
	"all":        true,
	"contracts":  true,
	"singlePair": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet key material is only required when the bot actually trades.
	needsWallet := c.Mode == "trade" || c.Mode == "full"
	if needsWallet {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	if needsWallet {
		if c.Chain.RouterAddress == "" {
			errs = append(errs, "chain: router_address must not be empty for mode "+c.Mode)
		}
		if c.Chain.FactoryAddress == "" {
			errs = append(errs, "chain: factory_address must not be empty for mode "+c.Mode)
		}
	}

	// Feed
	if c.Feed.URL == "" {
		errs = append(errs, "feed: url must not be empty")
	}
	if c.Feed.Chain == "" {
		errs = append(errs, "feed: chain must not be empty")
	}
	if c.Feed.Channel == "" {
		errs = append(errs, "feed: channel must not be empty")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Archive
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RawFlushInterval.Duration <= 0 {
			errs = append(errs, "archive: raw_flush_interval must be > 0")
		}
	}

	// Risk
	if c.Risk.MinPairBudgetUSD <= 0 {
		errs = append(errs, "risk: min_pair_budget_usd must be > 0")
	}
	if c.Risk.MaxPairBudgetUSD < c.Risk.MinPairBudgetUSD {
		errs = append(errs, "risk: max_pair_budget_usd must be >= min_pair_budget_usd")
	}
	if c.Risk.MaxVolPercentOfLP <= 0 || c.Risk.MaxVolPercentOfLP > 100 {
		errs = append(errs, "risk: max_vol_percent_of_lp must be in (0, 100]")
	}
	if c.Risk.SlippageTolerantPercent <= 0 {
		errs = append(errs, "risk: slippage_tolerant_percent must be > 0")
	}
	if c.Risk.TPTarget <= 1 {
		errs = append(errs, "risk: tp_target must be > 1")
	}
	if c.Risk.SLTarget <= 0 || c.Risk.SLTarget >= 1 {
		errs = append(errs, "risk: sl_target must be in (0, 1)")
	}

	// Scope
	if !validScopeModes[c.Scope.Mode] {
		errs = append(errs, fmt.Sprintf("scope: unknown mode %q (valid: all, contracts, singlePair)", c.Scope.Mode))
	}
	if c.Scope.Mode == "singlePair" && c.Scope.SinglePair == "" {
		errs = append(errs, "scope: single_pair must be set when mode is singlePair")
	}

	// Quote symbols
	for i, q := range c.QuoteSymbols {
		if q.Symbol == "" {
			errs = append(errs, fmt.Sprintf("quote_symbols[%d]: symbol must not be empty", i))
		}
		if q.Address == "" {
			errs = append(errs, fmt.Sprintf("quote_symbols[%d]: address must not be empty", i))
		}
		if q.Decimals <= 0 {
			errs = append(errs, fmt.Sprintf("quote_symbols[%d]: decimals must be > 0", i))
		}
		if !q.IsStable && q.BinanceSymbol == "" {
			errs = append(errs, fmt.Sprintf("quote_symbols[%d]: binance_symbol is required for non-stable %s", i, q.Symbol))
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
