package execution

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/pben56681-png/israell/internal/risk"
)

// OrderPlacer submits a single leg and returns the venue order identifier
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (string, error)
}

// emergencyHalt is how long submissions stay paused after a partial-fill
// unwind, leaving room for operator intervention.
const emergencyHalt = 60 * time.Second

// minTick is the venue's smallest price increment; the emergency sell is
// priced here so a FOK crosses whatever bid exists.
var minTick = decimal.NewFromFloat(0.01)

// Engine executes two-legged hedge trades. The venue offers no cross-leg
// atomicity, so consistency after a single-leg fill is restored only by the
// compensating sell.
type Engine struct {
	placer OrderPlacer
	risk   *risk.Manager

	mu          sync.Mutex
	haltedUntil time.Time

	onTrade func(TradeEvent)
	now     func() time.Time
}

// NewEngine creates an execution engine
func NewEngine(placer OrderPlacer, riskMgr *risk.Manager) *Engine {
	return &Engine{
		placer: placer,
		risk:   riskMgr,
		now:    time.Now,
	}
}

// SetTradeCallback registers a callback fired after every completed attempt
func (e *Engine) SetTradeCallback(cb func(TradeEvent)) {
	e.onTrade = cb
}

// ExecuteArb buys both legs of a market concurrently and classifies the
// outcome. A leg counts as filled iff submission returned an order ID:
// FOK acceptance stands in for execution, and transport or signing failures
// are indistinguishable from a legitimate miss.
func (e *Engine) ExecuteArb(ctx context.Context, marketID, yesToken, noToken string, priceYes, priceNo, size decimal.Decimal) TradeStatus {
	if e.halted() {
		log.Warn().Str("market", marketID).Msg("Submission paused after emergency, skipping")
		return e.finish(marketID, priceYes, priceNo, size, StatusFailed)
	}

	totalCost := priceYes.Add(priceNo).Mul(size)
	if !e.risk.CheckTradeSize(totalCost) {
		return e.finish(marketID, priceYes, priceNo, size, StatusFailed)
	}

	start := e.now()
	log.Info().
		Str("market", marketID).
		Str("size", size.String()).
		Str("yes", priceYes.String()).
		Str("no", priceNo.String()).
		Msg("⚡ Executing arb")

	orderYes := OrderRequest{MarketID: marketID, TokenID: yesToken, Side: SideBuy, Price: priceYes, Size: size}
	orderNo := OrderRequest{MarketID: marketID, TokenID: noToken, Side: SideBuy, Price: priceNo, Size: size}

	// Both legs go out together; neither waits for the other.
	var wg sync.WaitGroup
	var filledYes, filledNo bool
	wg.Add(2)
	go func() {
		defer wg.Done()
		filledYes = e.placeLeg(ctx, orderYes)
	}()
	go func() {
		defer wg.Done()
		filledNo = e.placeLeg(ctx, orderNo)
	}()
	wg.Wait()

	log.Info().Dur("latency", time.Since(start)).Msg("Legs placed, checking fills")

	switch {
	case filledYes && filledNo:
		profit := decimal.NewFromInt(1).Sub(priceYes.Add(priceNo)).Mul(size)
		log.Info().Str("profit", profit.String()).Msg("✅ Arbitrage success: both legs filled")
		e.risk.RecordPnL(profit)
		return e.finish(marketID, priceYes, priceNo, size, StatusFilled)

	case !filledYes && !filledNo:
		log.Info().Msg("Both legs missed, no exposure")
		return e.finish(marketID, priceYes, priceNo, size, StatusCancelled)

	default:
		log.Error().
			Bool("yes_filled", filledYes).
			Bool("no_filled", filledNo).
			Msg("🚨 PARTIAL FILL EMERGENCY")
		e.handleEmergency(ctx, marketID, yesToken, noToken, filledYes, size)
		return e.finish(marketID, priceYes, priceNo, size, StatusPartialFillEmergency)
	}
}

// placeLeg submits one leg; any failure folds into not-filled
func (e *Engine) placeLeg(ctx context.Context, req OrderRequest) bool {
	orderID, err := e.placer.PlaceOrder(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("token", req.TokenID).Msg("Leg not filled")
		return false
	}
	return orderID != ""
}

// handleEmergency latches safe mode, flattens the naked position with one
// compensating sell at the minimum tick, and pauses all future submissions.
func (e *Engine) handleEmergency(ctx context.Context, marketID, yesToken, noToken string, filledYes bool, size decimal.Decimal) {
	e.risk.EnterSafeMode()

	dumpToken := noToken
	if filledYes {
		dumpToken = yesToken
	}

	log.Warn().Str("token", dumpToken).Msg("EMERGENCY: dumping naked exposure")

	dump := OrderRequest{
		MarketID: marketID,
		TokenID:  dumpToken,
		Side:     SideSell,
		Price:    minTick,
		Size:     size,
	}
	if _, err := e.placer.PlaceOrder(ctx, dump); err != nil {
		log.Error().Err(err).Msg("Emergency sell failed, position remains open")
	}

	e.mu.Lock()
	e.haltedUntil = e.now().Add(emergencyHalt)
	e.mu.Unlock()

	log.Error().Msg("Emergency flatten sequence complete, trading halted")
}

func (e *Engine) halted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now().Before(e.haltedUntil)
}

// finish emits the trade event and returns the status
func (e *Engine) finish(marketID string, priceYes, priceNo, size decimal.Decimal, status TradeStatus) TradeStatus {
	if e.onTrade != nil {
		e.onTrade(TradeEvent{
			ID:        uuid.New(),
			MarketID:  marketID,
			YesPrice:  priceYes,
			NoPrice:   priceNo,
			Edge:      decimal.NewFromInt(1).Sub(priceYes.Add(priceNo)),
			Size:      size,
			Status:    status,
			Timestamp: e.now(),
		})
	}
	return status
}
