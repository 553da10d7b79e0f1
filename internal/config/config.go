// Package config loads all runtime settings from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the bot
type Config struct {
	// CLOB Credentials
	APIKey        string
	APISecret     string
	APIPassphrase string

	// Wallet
	PrivateKey    string // hex-encoded signing key
	FunderAddress string // address that holds the USDC

	// Endpoints
	HTTPURL string
	WSURL   string

	// Risk limits
	MaxDailyLossPct    decimal.Decimal // e.g. 0.02 = 2% of initial balance
	MaxTradeCapitalPct decimal.Decimal // e.g. 0.01 = 1% of current balance
	InitialBalance     decimal.Decimal // USDC assumed at startup

	// Strategy
	MinEdge                decimal.Decimal // e.g. 0.05 = 5 cents per share pair
	TakerFee               decimal.Decimal // per-leg fee rate, 0 on Polymarket
	TradeSize              decimal.Decimal // shares per leg
	MinLiquidityMultiplier decimal.Decimal // required top-of-book depth vs trade size
	TradeCooldown          time.Duration   // per-market wait after a fill

	// Re-entry normalization
	NormalizationThreshold decimal.Decimal // YES+NO ask sum considered "healed"
	NormalizationUpdates   int             // consecutive updates before re-arming

	// Telegram (optional)
	TelegramToken  string
	TelegramChatID int64

	Debug bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		APIKey:        os.Getenv("POLY_API_KEY"),
		APISecret:     os.Getenv("POLY_API_SECRET"),
		APIPassphrase: os.Getenv("POLY_API_PASSPHRASE"),
		PrivateKey:    os.Getenv("POLY_PRIVATE_KEY"),
		FunderAddress: os.Getenv("POLY_FUNDER"),

		HTTPURL: getEnv("POLY_HTTP_URL", "https://clob.polymarket.com"),
		WSURL:   getEnv("POLY_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),

		MaxDailyLossPct:    getEnvDecimal("MAX_DAILY_LOSS_PCT", decimal.NewFromFloat(0.02)),
		MaxTradeCapitalPct: getEnvDecimal("MAX_TRADE_CAPITAL_PCT", decimal.NewFromFloat(0.01)),
		InitialBalance:     getEnvDecimal("INITIAL_BALANCE", decimal.NewFromInt(1000)),

		MinEdge:                getEnvDecimal("MIN_EDGE", decimal.NewFromFloat(0.05)),
		TakerFee:               getEnvDecimal("TAKER_FEE", decimal.Zero),
		TradeSize:              getEnvDecimal("TRADE_SIZE", decimal.NewFromInt(10)),
		MinLiquidityMultiplier: getEnvDecimal("MIN_LIQUIDITY_MULTIPLIER", decimal.NewFromInt(5)),
		TradeCooldown:          getEnvDuration("TRADE_COOLDOWN", 30*time.Second),

		NormalizationThreshold: getEnvDecimal("NORMALIZATION_THRESHOLD", decimal.NewFromFloat(0.99)),
		NormalizationUpdates:   getEnvInt("NORMALIZATION_UPDATES", 3),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		Debug: getEnvBool("DEBUG", false),
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	// Validate required fields
	for _, req := range []struct{ name, val string }{
		{"POLY_API_KEY", cfg.APIKey},
		{"POLY_API_SECRET", cfg.APISecret},
		{"POLY_API_PASSPHRASE", cfg.APIPassphrase},
		{"POLY_PRIVATE_KEY", cfg.PrivateKey},
		{"POLY_FUNDER", cfg.FunderAddress},
	} {
		if req.val == "" {
			return nil, fmt.Errorf("%s is required", req.name)
		}
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
