// Package execution submits hedge legs to the CLOB, classifies fills and
// runs the emergency unwind when only one leg lands.
package execution

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is an order side
type Side int

const (
	SideBuy Side = iota
	SideSell
)

// String returns the API representation
func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// TradeStatus is the enumerated outcome of an arbitrage attempt. Execution
// faults surface only as one of these values, never as an error.
type TradeStatus int

const (
	StatusPending TradeStatus = iota
	StatusFilled
	StatusPartialFillEmergency
	StatusFailed
	StatusCancelled
)

func (s TradeStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFilled:
		return "filled"
	case StatusPartialFillEmergency:
		return "partial_fill_emergency"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// OrderRequest holds one leg's parameters
type OrderRequest struct {
	MarketID string
	TokenID  string
	Side     Side
	Price    decimal.Decimal
	Size     decimal.Decimal
}

// TradeEvent records one completed arbitrage attempt for alerting
type TradeEvent struct {
	ID        uuid.UUID
	MarketID  string
	YesPrice  decimal.Decimal
	NoPrice   decimal.Decimal
	Edge      decimal.Decimal
	Size      decimal.Decimal
	Status    TradeStatus
	Timestamp time.Time
}
