package strategy

import (
	"sort"
	"time"

	"github.com/topgrade691028/binkiller/internal/order"
)

// TradeRecord is the per-signal entry/exit bookkeeping kept during a
// balance replay.
type TradeRecord struct {
	Symbol   string    `json:"symbol"`
	Entry    float64   `json:"entry"`
	Exit     float64   `json:"exit,omitempty"`
	OpenedAt time.Time `json:"openedAt"`
	ClosedAt time.Time `json:"closedAt,omitempty"`
}

// Snapshot is the outcome of replaying one instance's order book:
// margin-accounted balances plus residual holdings marked to market.
type Snapshot struct {
	Strategy string                 `json:"strategy"`
	Total    float64                `json:"total"`
	Spot     float64                `json:"spot"`
	Loan     float64                `json:"loan"`
	Holdings map[string]float64     `json:"holdings"`
	Values   map[string]float64     `json:"values"`
	Trades   map[string]TradeRecord `json:"trades"`
}

// SimulateBalance replays this instance's filled and stopped-out orders
// within the window, oldest first by each order's relevant timestamp,
// and values what is still held at the supplied current prices.
// sizePerTrade above 1 is an absolute cap per trade; at or below 1 it
// is a fraction of the running spot balance.
func (i *Instance) SimulateBalance(startingCapital, sizePerTrade float64, excluded []string, windowDays int, prices map[string]float64) Snapshot {
	orders := i.sortedOrders()

	skip := make(map[string]struct{}, len(excluded))
	for _, sym := range excluded {
		skip[sym] = struct{}{}
	}
	limit := time.Now().AddDate(0, 0, -windowDays)

	spot := startingCapital
	loan := 0.0
	holdings := make(map[string]float64)
	trades := make(map[string]TradeRecord)

	for _, o := range orders {
		if o.CreatedAt.Before(limit) {
			continue
		}
		if _, excludedSym := skip[o.Symbol]; excludedSym {
			continue
		}
		if !o.Closed() {
			continue
		}

		if o.Side == order.Buy {
			amount := tradeSize(spot, sizePerTrade)
			spot -= amount
			loan += amount * (o.Leverage - 1)
			holdings[o.Symbol] += amount * o.Leverage / o.Price
			trades[o.SignalID] = TradeRecord{
				Symbol:   o.Symbol,
				Entry:    amount,
				OpenedAt: o.CreatedAt,
			}
			continue
		}

		record, open := trades[o.SignalID]
		if !open || !record.ClosedAt.IsZero() {
			continue
		}
		sellPrice := o.Price
		if o.Status == order.StoppedOut {
			sellPrice = o.StopLoss
		}
		proceeds := holdings[o.Symbol]*sellPrice - record.Entry*(o.Leverage-1)
		spot += proceeds
		loan -= record.Entry * (o.Leverage - 1)
		holdings[o.Symbol] = 0
		record.Exit = proceeds
		record.ClosedAt = o.ClosedAt
		trades[o.SignalID] = record
	}

	total := spot - loan
	values := make(map[string]float64)
	for sym, qty := range holdings {
		if qty == 0 {
			delete(holdings, sym)
			continue
		}
		px, known := prices[sym]
		if !known {
			continue
		}
		total += qty * px
		values[sym] = qty * px
	}

	return Snapshot{
		Strategy: i.name,
		Total:    total,
		Spot:     spot,
		Loan:     loan,
		Holdings: holdings,
		Values:   values,
		Trades:   trades,
	}
}

// sortedOrders snapshots the order map ascending by relevant timestamp
// (creation for buys, close for sells), stable on insertion ties.
func (i *Instance) sortedOrders() []*order.Order {
	i.mu.Lock()
	orders := make([]*order.Order, 0, len(i.orders))
	for _, o := range i.orders {
		cp := *o
		orders = append(orders, &cp)
	}
	i.mu.Unlock()

	sort.SliceStable(orders, func(a, b int) bool {
		ta, tb := orders[a].RelevantTime(), orders[b].RelevantTime()
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		if !orders[a].CreatedAt.Equal(orders[b].CreatedAt) {
			return orders[a].CreatedAt.Before(orders[b].CreatedAt)
		}
		return orders[a].ID < orders[b].ID
	})
	return orders
}

func tradeSize(spot, sizePerTrade float64) float64 {
	if sizePerTrade > 1 {
		if spot < sizePerTrade {
			return spot
		}
		return sizePerTrade
	}
	return spot * sizePerTrade
}
