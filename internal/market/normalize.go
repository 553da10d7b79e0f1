package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// State is the per-market re-entry state. Created at discovery, mutated on
// every book update and every completed trade, never destroyed.
type State struct {
	IsNormalized          bool
	ConsecutiveNormalized int
	LastTradeTime         time.Time
	LastEdge              decimal.Decimal
}

// NormalizationTracker arms markets for trading once their book has "healed":
// the YES+NO best-ask sum must stay at or above the threshold for N
// consecutive updates. Once armed, the flag latches until the next filled
// trade on that market; a later non-normalized reading resets the counter
// but does not disarm.
type NormalizationTracker struct {
	mu        sync.Mutex
	states    map[string]*State
	threshold decimal.Decimal
	updates   int
}

// NewNormalizationTracker creates a tracker with the configured threshold and
// required consecutive update count
func NewNormalizationTracker(threshold decimal.Decimal, updates int) *NormalizationTracker {
	return &NormalizationTracker{
		states:    make(map[string]*State),
		threshold: threshold,
		updates:   updates,
	}
}

// Observe feeds one book update's best asks into the state machine and
// returns the resulting edge (1 - sum), recorded for observability.
func (n *NormalizationTracker) Observe(marketID string, askYes, askNo decimal.Decimal) decimal.Decimal {
	sum := askYes.Add(askNo)
	edge := decimal.NewFromInt(1).Sub(sum)

	n.mu.Lock()
	defer n.mu.Unlock()

	st := n.state(marketID)
	if sum.GreaterThanOrEqual(n.threshold) {
		st.ConsecutiveNormalized++
		if st.ConsecutiveNormalized >= n.updates {
			st.IsNormalized = true
		}
	} else {
		st.ConsecutiveNormalized = 0
	}
	st.LastEdge = edge

	return edge
}

// MarkTradeExecuted disarms the market after a filled trade and starts its
// cooldown clock
func (n *NormalizationTracker) MarkTradeExecuted(marketID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	st := n.state(marketID)
	st.IsNormalized = false
	st.ConsecutiveNormalized = 0
	st.LastTradeTime = time.Now()
}

// State returns a copy of a market's current state
func (n *NormalizationTracker) State(marketID string) (State, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	st, ok := n.states[marketID]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// state returns the mutable state, creating it on first touch. Caller holds
// the lock.
func (n *NormalizationTracker) state(marketID string) *State {
	st, ok := n.states[marketID]
	if !ok {
		st = &State{}
		n.states[marketID] = st
	}
	return st
}
