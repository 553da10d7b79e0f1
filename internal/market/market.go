// Package market models binary-outcome prediction markets and tracks their
// per-market re-entry state.
package market

// Token is one leg of a binary market
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"` // "Yes" or "No"
}

// Market is a binary-outcome market as returned by discovery
type Market struct {
	ConditionID     string   `json:"condition_id"`
	Question        string   `json:"question"`
	Tokens          []Token  `json:"tokens"`
	Active          bool     `json:"active"`
	Closed          bool     `json:"closed"`
	AcceptingOrders bool     `json:"accepting_orders"`
	EndDateISO      string   `json:"end_date_iso"`
	Tags            []string `json:"tags"`
}

// cryptoTags are the categories this bot trades
var cryptoTags = map[string]bool{
	"Crypto":   true,
	"Bitcoin":  true,
	"Ethereum": true,
	"Solana":   true,
}

// Tradable reports whether the market is actionable: exactly two tokens,
// active and accepting orders
func (m *Market) Tradable() bool {
	return m.Active && m.AcceptingOrders && len(m.Tokens) == 2
}

// IsCrypto reports whether the market carries a recognized crypto tag
func (m *Market) IsCrypto() bool {
	for _, tag := range m.Tags {
		if cryptoTags[tag] {
			return true
		}
	}
	return false
}
