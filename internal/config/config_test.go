package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsValidateForMonitor(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"

	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresWalletForTrading(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "private_key or encrypted_key_path")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	cfg.Risk.TPTarget = 1
	cfg.Risk.SLTarget = 1.5
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "tp_target")
	require.Contains(t, err.Error(), "sl_target")
	require.Contains(t, err.Error(), "redis: addr")
}

func TestValidateRejectsUnknownScopeMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	cfg.Scope.Mode = "whitelist"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "scope")
}

func TestValidateSinglePairScopeNeedsPair(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	cfg.Scope.Mode = "singlePair"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "single_pair")
}

func TestValidateNonStableQuoteSymbolNeedsTicker(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	cfg.QuoteSymbols = append(cfg.QuoteSymbols, QuoteSymbolConfig{
		Symbol:   "CAKE",
		Address:  "0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82",
		Decimals: 18,
	})

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "binance_symbol")
}

func TestDurationTextRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))

	text, err := d.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "1m30s", string(text))
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "deadbeef"
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.S3.SecretKey = "hunter2"
	cfg.Server.AuthToken = "hunter2"
	cfg.Notify.TelegramToken = "123:abc"

	out := RedactedConfig(&cfg)
	require.Equal(t, "***", out.Wallet.PrivateKey)
	require.Equal(t, "***", out.Postgres.Password)
	require.Equal(t, "***", out.Redis.Password)
	require.Equal(t, "***", out.S3.SecretKey)
	require.Equal(t, "***", out.Server.AuthToken)
	require.Equal(t, "***", out.Notify.TelegramToken)

	// Original untouched.
	require.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)

	// Empty secrets stay empty rather than pretending one is set.
	require.Empty(t, out.Notify.DiscordWebhookURL)
}
