// Package risk gates every trade behind balance and loss limits.
//
// All state sits behind one mutex with short critical sections; no network
// call ever happens while the lock is held. Safe mode, once entered, is
// irreversible for the life of the process; only a restart clears it.
package risk

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Manager tracks balance, daily PnL and the safe-mode latch
type Manager struct {
	mu sync.Mutex

	initialBalance decimal.Decimal
	currentBalance decimal.Decimal
	dailyPnL       decimal.Decimal
	safeMode       bool

	maxDailyLossPct    decimal.Decimal
	maxTradeCapitalPct decimal.Decimal
}

// NewManager creates a risk manager seeded with the configured balance
func NewManager(initialBalance, maxDailyLossPct, maxTradeCapitalPct decimal.Decimal) *Manager {
	log.Info().
		Str("initial_balance", initialBalance.String()).
		Str("max_daily_loss_pct", maxDailyLossPct.String()).
		Str("max_trade_capital_pct", maxTradeCapitalPct.String()).
		Msg("🛡️ Risk manager initialized")

	return &Manager{
		initialBalance:     initialBalance,
		currentBalance:     initialBalance,
		dailyPnL:           decimal.Zero,
		maxDailyLossPct:    maxDailyLossPct,
		maxTradeCapitalPct: maxTradeCapitalPct,
	}
}

// CheckTradeSize reports whether a trade requiring the given capital is
// allowed. Pure predicate: nothing is reserved, so two concurrent checks can
// both pass before either result is recorded.
func (m *Manager) CheckTradeSize(required decimal.Decimal) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.safeMode {
		log.Warn().Msg("Risk check failed: safe mode is active")
		return false
	}

	maxTrade := m.currentBalance.Mul(m.maxTradeCapitalPct)
	if required.GreaterThan(maxTrade) {
		log.Warn().
			Str("required", required.String()).
			Str("limit", maxTrade.String()).
			Msg("Risk check failed: trade size exceeds limit")
		return false
	}

	lossLimit := m.initialBalance.Mul(m.maxDailyLossPct)
	if m.dailyPnL.LessThan(lossLimit.Neg()) {
		log.Warn().Msg("Risk check failed: daily loss limit reached")
		return false
	}

	return true
}

// RecordPnL applies a realized profit or loss. Breaching the daily loss
// limit latches safe mode.
func (m *Manager) RecordPnL(delta decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyPnL = m.dailyPnL.Add(delta)
	m.currentBalance = m.currentBalance.Add(delta)

	log.Info().
		Str("daily_pnl", m.dailyPnL.String()).
		Str("balance", m.currentBalance.String()).
		Msg("PnL updated")

	lossLimit := m.initialBalance.Mul(m.maxDailyLossPct)
	if m.dailyPnL.LessThan(lossLimit.Neg()) && !m.safeMode {
		log.Error().Msg("🚨 Daily loss limit hit - entering SAFE MODE")
		m.safeMode = true
	}
}

// EnterSafeMode halts all future trade approvals. Idempotent.
func (m *Manager) EnterSafeMode() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.safeMode {
		log.Error().Msg("🚨 Manual trigger: entering SAFE MODE")
		m.safeMode = true
	}
}

// SafeMode reports whether the safe-mode latch is set
func (m *Manager) SafeMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.safeMode
}

// Balance returns the current balance
func (m *Manager) Balance() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentBalance
}

// DailyPnL returns the accumulated PnL
func (m *Manager) DailyPnL() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyPnL
}
