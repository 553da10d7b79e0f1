// Israell - binary-market arbitrage bot for Polymarket
//
// Watches the CLOB book feed for moments where the combined cost of buying
// both legs of a YES/NO market is provably below $1, then executes a
// risk-gated two-legged hedge, unwinding automatically if only one leg
// fills.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pben56681-png/israell/internal/books"
	"github.com/pben56681-png/israell/internal/config"
	"github.com/pben56681-png/israell/internal/execution"
	"github.com/pben56681-png/israell/internal/feed"
	"github.com/pben56681-png/israell/internal/market"
	"github.com/pben56681-png/israell/internal/notify"
	"github.com/pben56681-png/israell/internal/risk"
	"github.com/pben56681-png/israell/internal/strategy"
)

const version = "1.0.0"

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Str("max_daily_loss_pct", cfg.MaxDailyLossPct.String()).
		Str("min_edge", cfg.MinEdge.String()).
		Msg("⚡ Israell arbitrage bot starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ====== CORE COMPONENTS ======

	store := books.NewStore()
	table := market.NewTable()
	tracker := market.NewNormalizationTracker(cfg.NormalizationThreshold, cfg.NormalizationUpdates)
	bus := feed.NewBus()

	riskMgr := risk.NewManager(cfg.InitialBalance, cfg.MaxDailyLossPct, cfg.MaxTradeCapitalPct)

	signer, err := execution.NewSigner(cfg.PrivateKey, cfg.FunderAddress)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize order signer")
	}

	client := execution.NewClient(cfg.HTTPURL, cfg.APIKey, cfg.APISecret, cfg.APIPassphrase, signer)
	engine := execution.NewEngine(client, riskMgr)

	notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Warn().Err(err).Msg("Telegram alerts disabled")
	}
	engine.SetTradeCallback(func(ev execution.TradeEvent) {
		notifier.TradeCompleted(ev)
		if ev.Status == execution.StatusPartialFillEmergency {
			notifier.SafeModeEntered("partial fill on " + ev.MarketID)
		}
	})

	strat := strategy.NewEngine(strategy.Config{
		TradeSize:              cfg.TradeSize,
		MinEdge:                cfg.MinEdge,
		TakerFee:               cfg.TakerFee,
		MinLiquidityMultiplier: cfg.MinLiquidityMultiplier,
		TradeCooldown:          cfg.TradeCooldown,
	}, table, store, tracker, engine, bus)

	// ====== STARTUP ======

	// One-shot market discovery; failure leaves an empty table but does not
	// kill the process.
	discovery := market.NewDiscovery(cfg.HTTPURL)
	if err := discovery.Run(ctx, table); err != nil {
		log.Error().Err(err).Msg("Market discovery failed")
	}
	if table.Len() == 0 {
		log.Warn().Msg("No tradable markets discovered")
	}

	feedClient := feed.NewClient(cfg.WSURL, table, store, tracker, bus)
	go feedClient.Run(ctx)
	go strat.Run(ctx)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down...")
	cancel()
	bus.Close()
}
