// Package order models one leg of a strategy's trading activity.
package order

import "time"

// Side enumerates order directions.
type Side string

const (
	// Buy indicates an entry order.
	Buy Side = "BUY"
	// Sell indicates an exit order spawned by a filled buy.
	Sell Side = "SELL"
)

// Status enumerates lifecycle states of an order.
type Status string

const (
	// Active orders are waiting for a price to cross their target.
	Active Status = "ACTIVE"
	// Filled orders reached their target price.
	Filled Status = "FILLED"
	// StoppedOut sell orders were closed by their stop loss.
	StoppedOut Status = "STOPPED_OUT"
	// Expired buy orders ran past their lifetime without filling.
	Expired Status = "EXPIRED"
	// Superseded buy orders were replaced by a newer signal for the same symbol.
	Superseded Status = "SUPERSEDED"
)

// Order is exclusively owned and mutated by one strategy instance.
type Order struct {
	ID       string `json:"id"`
	LinkedID string `json:"linkedId,omitempty"` // sell order's back-reference to its buy
	SignalID string `json:"signalId"`
	Symbol   string `json:"symbol"`
	Side     Side   `json:"side"`

	Price    float64 `json:"price"`
	StopLoss float64 `json:"stopLoss,omitempty"` // sell orders only
	Leverage float64 `json:"leverage"`

	// ExpiresAt is set on buy orders only; the zero value means no expiry.
	ExpiresAt time.Time `json:"expiresAt,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	ClosedAt  time.Time `json:"closedAt,omitempty"`
}

// Open reports whether the order is still waiting on the market.
func (o *Order) Open() bool { return o.Status == Active }

// Closed reports whether the order participated in a completed trade.
// Expired and superseded orders never traded and do not count.
func (o *Order) Closed() bool { return o.Status == Filled || o.Status == StoppedOut }

// RelevantTime is the timestamp a backtest replay sorts on: creation
// time for buys, close time for sells.
func (o *Order) RelevantTime() time.Time {
	if o.Side == Buy {
		return o.CreatedAt
	}
	return o.ClosedAt
}
