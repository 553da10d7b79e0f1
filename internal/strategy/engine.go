// Package strategy runs the event-driven gate pipeline: each book update
// that touched a market flows through liquidity, re-entry and edge checks
// before execution is dispatched.
package strategy

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/pben56681-png/israell/internal/books"
	"github.com/pben56681-png/israell/internal/execution"
	"github.com/pben56681-png/israell/internal/feed"
	"github.com/pben56681-png/israell/internal/market"
)

// Executor dispatches a two-legged hedge trade
type Executor interface {
	ExecuteArb(ctx context.Context, marketID, yesToken, noToken string, priceYes, priceNo, size decimal.Decimal) execution.TradeStatus
}

// Config holds the strategy thresholds
type Config struct {
	TradeSize              decimal.Decimal
	MinEdge                decimal.Decimal
	TakerFee               decimal.Decimal
	MinLiquidityMultiplier decimal.Decimal
	TradeCooldown          time.Duration
}

// Engine is the single consumer of market-changed notifications
type Engine struct {
	cfg      Config
	table    *market.Table
	store    *books.Store
	tracker  *market.NormalizationTracker
	executor Executor
	bus      *feed.Bus

	now func() time.Time
}

// NewEngine creates a strategy engine
func NewEngine(cfg Config, table *market.Table, store *books.Store, tracker *market.NormalizationTracker, executor Executor, bus *feed.Bus) *Engine {
	return &Engine{
		cfg:      cfg,
		table:    table,
		store:    store,
		tracker:  tracker,
		executor: executor,
		bus:      bus,
		now:      time.Now,
	}
}

// Run consumes notifications until the context is cancelled
func (e *Engine) Run(ctx context.Context) {
	sub := e.bus.Subscribe(100)
	log.Info().Msg("Strategy engine started, waiting for book updates")

	for {
		marketID, missed, ok := sub.Recv(ctx)
		if !ok {
			log.Info().Msg("Strategy engine stopped")
			return
		}
		if missed > 0 {
			log.Warn().Uint64("missed", missed).Msg("Strategy lagged behind updates")
		}
		e.processUpdate(ctx, marketID)
	}
}

// processUpdate walks one notification through the gates
func (e *Engine) processUpdate(ctx context.Context, marketID string) {
	yesToken, noToken, ok := e.table.TokensFor(marketID)
	if !ok {
		return
	}

	// Liquidity gate: both legs must have top-of-book depth for the trade.
	required := e.cfg.TradeSize.Mul(e.cfg.MinLiquidityMultiplier)
	if !e.store.HasLiquidity(yesToken, required) || !e.store.HasLiquidity(noToken, required) {
		return
	}

	// Re-entry gate: the book must have normalized since the last trade,
	// and the cooldown must have elapsed.
	st, ok := e.tracker.State(marketID)
	if !ok || !st.IsNormalized {
		return
	}
	if !st.LastTradeTime.IsZero() && e.now().Sub(st.LastTradeTime) < e.cfg.TradeCooldown {
		return
	}

	priceYes, priceNo, ok := e.bestAsks(yesToken, noToken)
	if !ok || !e.checkOpportunity(priceYes, priceNo) {
		return
	}

	// Re-validate with fresh prices immediately before dispatch; the book
	// may have moved since the first read.
	finalYes, finalNo, ok := e.bestAsks(yesToken, noToken)
	if !ok || !e.checkOpportunity(finalYes, finalNo) {
		log.Debug().Str("market", marketID).Msg("Pre-flight re-check failed")
		return
	}

	log.Info().
		Str("market", marketID).
		Str("yes", finalYes.String()).
		Str("no", finalNo.String()).
		Msg("⚡ Opportunity confirmed, dispatching")

	status := e.executor.ExecuteArb(ctx, marketID, yesToken, noToken, finalYes, finalNo, e.cfg.TradeSize)

	if status == execution.StatusFilled {
		e.tracker.MarkTradeExecuted(marketID)
		log.Info().Str("market", marketID).Msg("Trade filled, cooldown started")
	} else {
		log.Warn().Str("market", marketID).Str("status", status.String()).Msg("Trade not filled, state preserved")
	}
}

func (e *Engine) bestAsks(yesToken, noToken string) (decimal.Decimal, decimal.Decimal, bool) {
	askYes, okYes := e.store.BestAsk(yesToken)
	askNo, okNo := e.store.BestAsk(noToken)
	if !okYes || !okNo {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	return askYes.Price, askNo.Price, true
}

// checkOpportunity reports whether buying both legs clears the minimum edge
// after fees
func (e *Engine) checkOpportunity(priceYes, priceNo decimal.Decimal) bool {
	feeMult := decimal.NewFromInt(1).Add(e.cfg.TakerFee)
	totalCost := priceYes.Mul(feeMult).Add(priceNo.Mul(feeMult))
	edge := decimal.NewFromInt(1).Sub(totalCost)
	return edge.GreaterThanOrEqual(e.cfg.MinEdge)
}
