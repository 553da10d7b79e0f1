package market

import "sync"

// Table is the registry of tradable markets. The token→market index is built
// at registration and assumed immutable for the process lifetime.
type Table struct {
	mu            sync.RWMutex
	markets       map[string]*Market // condition ID -> market
	tokenToMarket map[string]string  // token ID -> condition ID
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{
		markets:       make(map[string]*Market),
		tokenToMarket: make(map[string]string),
	}
}

// Add registers a market and indexes its tokens
func (t *Table) Add(m *Market) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.markets[m.ConditionID] = m
	for _, tok := range m.Tokens {
		t.tokenToMarket[tok.TokenID] = m.ConditionID
	}
}

// Get returns a market by condition ID
func (t *Table) Get(marketID string) (*Market, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m, ok := t.markets[marketID]
	return m, ok
}

// Len returns the number of registered markets
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.markets)
}

// MarketForToken resolves the market a token belongs to
func (t *Table) MarketForToken(tokenID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.tokenToMarket[tokenID]
	return id, ok
}

// TokensFor returns the two leg token IDs of a market, YES first when the
// outcome labels identify it
func (t *Table) TokensFor(marketID string) (yes, no string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m, found := t.markets[marketID]
	if !found || len(m.Tokens) < 2 {
		return "", "", false
	}

	yes, no = m.Tokens[0].TokenID, m.Tokens[1].TokenID
	if m.Tokens[1].Outcome == "Yes" {
		yes, no = no, yes
	}
	return yes, no, true
}

// TokenIDs returns every indexed token ID, for feed subscription
func (t *Table) TokenIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.tokenToMarket))
	for id := range t.tokenToMarket {
		ids = append(ids, id)
	}
	return ids
}
