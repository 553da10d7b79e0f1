package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("POLY_API_KEY", "key")
	t.Setenv("POLY_API_SECRET", "secret")
	t.Setenv("POLY_API_PASSPHRASE", "phrase")
	t.Setenv("POLY_PRIVATE_KEY", "deadbeef")
	t.Setenv("POLY_FUNDER", "0x1111111111111111111111111111111111111111")
}

func TestLoadDefaults(t *testing.T) {
	setCredentials(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://clob.polymarket.com", cfg.HTTPURL)
	assert.True(t, cfg.MaxDailyLossPct.Equal(decimal.NewFromFloat(0.02)))
	assert.True(t, cfg.MaxTradeCapitalPct.Equal(decimal.NewFromFloat(0.01)))
	assert.True(t, cfg.MinEdge.Equal(decimal.NewFromFloat(0.05)))
	assert.True(t, cfg.TradeSize.Equal(decimal.NewFromInt(10)))
	assert.True(t, cfg.MinLiquidityMultiplier.Equal(decimal.NewFromInt(5)))
	assert.True(t, cfg.NormalizationThreshold.Equal(decimal.NewFromFloat(0.99)))
	assert.Equal(t, 3, cfg.NormalizationUpdates)
	assert.Equal(t, 30*time.Second, cfg.TradeCooldown)
	assert.True(t, cfg.InitialBalance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, cfg.TakerFee.IsZero())
}

func TestLoadOverrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("MIN_EDGE", "0.1")
	t.Setenv("TRADE_COOLDOWN", "5s")
	t.Setenv("NORMALIZATION_UPDATES", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.MinEdge.Equal(decimal.NewFromFloat(0.1)))
	assert.Equal(t, 5*time.Second, cfg.TradeCooldown)
	assert.Equal(t, 7, cfg.NormalizationUpdates)
}

func TestLoadMissingCredentialsFails(t *testing.T) {
	setCredentials(t)
	t.Setenv("POLY_PRIVATE_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLY_PRIVATE_KEY")
}

func TestLoadInvalidChatID(t *testing.T) {
	setCredentials(t)
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}
