// Package broker defines the surface the control loop needs from a brokerage
// backend. The alpaca subpackage is the real implementation; tests supply
// fakes.
package broker

import (
	"context"
	"time"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide validates a string against the known sides.
func ParseSide(s string) (Side, bool) {
	switch Side(s) {
	case Buy, Sell:
		return Side(s), true
	}
	return "", false
}

// Account is the per-tick equity snapshot. LastEquity is the prior session's
// closing equity and serves as the baseline for today's P/L.
type Account struct {
	Equity     float64
	LastEquity float64
}

// Position is one open position with the broker's unrealized P/L as a
// fraction of cost basis (0.25 = +25%).
type Position struct {
	Symbol          string
	Qty             float64
	UnrealizedPLPct float64
}

// OrderRequest is a market order. Orders are always market/day; the venue
// decides whether the symbol is a stock or an option contract.
type OrderRequest struct {
	Symbol string
	Side   Side
	Qty    int
}

// Order is the venue's view of a submitted order.
type Order struct {
	ID     string
	Symbol string
	Side   Side
	Qty    int
	Status string
}

// Broker is the gateway to the trading venue. Every call blocks on I/O with a
// bounded timeout; callers pass a context for cancellation.
type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	GetPositions(ctx context.Context) ([]Position, error)
	CloseAll(ctx context.Context) error
	CloseSymbol(ctx context.Context, symbol string) error
	SubmitMarketOrder(ctx context.Context, req OrderRequest) (Order, error)
}

// Quote is the latest traded price for a symbol.
type Quote struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// QuoteSource provides the per-tick prices used to evaluate conditional
// orders.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}
