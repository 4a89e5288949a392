package strategy

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/topgrade691028/binkiller/internal/metrics"
	"github.com/topgrade691028/binkiller/internal/order"
	"github.com/topgrade691028/binkiller/internal/signal"
)

// DefaultBuyLifetime is how long a buy order waits for its entry price
// before expiring.
const DefaultBuyLifetime = 24 * time.Hour

// SignalStore resolves routed signals by id. A miss skips the affected
// transition for the tick; it is never fatal.
type SignalStore interface {
	Lookup(id string) (*signal.Signal, bool)
}

// Instance is the order lifecycle state machine for one policy
// combination. It exclusively owns its order map; all mutation happens
// under the instance mutex.
type Instance struct {
	name        string
	policies    Policies
	store       SignalStore
	buyLifetime time.Duration
	log         zerolog.Logger

	mu     sync.Mutex
	orders map[string]*order.Order
}

// NewInstance builds an empty instance for the named policy combination.
func NewInstance(name string, policies Policies, store SignalStore, buyLifetime time.Duration, log zerolog.Logger) *Instance {
	if buyLifetime <= 0 {
		buyLifetime = DefaultBuyLifetime
	}
	return &Instance{
		name:        name,
		policies:    policies,
		store:       store,
		buyLifetime: buyLifetime,
		log:         log.With().Str("strategy", name).Logger(),
		orders:      make(map[string]*order.Order),
	}
}

// Name returns the joined rule tags identifying this instance.
func (i *Instance) Name() string { return i.name }

// OnNewSignal reacts to a routed signal: supersedes stale active buys
// for the same symbol and opens a fresh buy order at the policy price.
// When an active sell for the symbol exists the signal is ignored, and
// a signal id already seen creates nothing (idempotent redelivery).
func (i *Instance) OnNewSignal(sig *signal.Signal, currentPrice float64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, o := range i.orders {
		if o.SignalID == sig.ID {
			return
		}
	}

	hasActiveSell := false
	for _, o := range i.orders {
		if o.Symbol != sig.Symbol || !o.Open() {
			continue
		}
		if o.Side == order.Sell {
			hasActiveSell = true
			continue
		}
		o.Status = order.Superseded
		o.ClosedAt = time.Now()
		i.log.Info().Str("order", o.ID).Str("symbol", o.Symbol).Msg("buy order superseded")
	}
	if hasActiveSell {
		return
	}

	now := time.Now()
	buy := &order.Order{
		ID:        uuid.NewString(),
		SignalID:  sig.ID,
		Symbol:    sig.Symbol,
		Side:      order.Buy,
		Price:     i.buyPrice(sig, currentPrice),
		Leverage:  i.leverage(sig),
		ExpiresAt: now.Add(i.buyLifetime),
		Status:    order.Active,
		CreatedAt: now,
	}
	i.orders[buy.ID] = buy
	metrics.OrdersTotal.WithLabelValues(buy.Symbol, string(buy.Side)).Inc()
	i.log.Info().Str("order", buy.ID).Str("symbol", buy.Symbol).
		Float64("price", buy.Price).Float64("leverage", buy.Leverage).Msg("new buy order created")
}

// OnPriceUpdate applies buy fills, sell fills/stops, and buy expiry, in
// that order. Symbols missing from the map are skipped silently.
func (i *Instance) OnPriceUpdate(prices map[string]float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.fillBuys(prices)
	i.updateSells(prices)
	i.expireBuys()
}

func (i *Instance) fillBuys(prices map[string]float64) {
	// Collect first: filling a buy adds the linked sell to the map.
	var fills []*order.Order
	for _, o := range i.orders {
		if !o.Open() || o.Side != order.Buy {
			continue
		}
		cur, ok := prices[o.Symbol]
		if !ok {
			continue
		}
		if cur > o.Price {
			continue
		}
		fills = append(fills, o)
	}

	for _, buy := range fills {
		sig, ok := i.store.Lookup(buy.SignalID)
		if !ok {
			// Stale signal; retry next tick.
			continue
		}
		now := time.Now()
		buy.Status = order.Filled
		buy.ClosedAt = now

		sell := &order.Order{
			ID:        uuid.NewString(),
			LinkedID:  buy.ID,
			SignalID:  buy.SignalID,
			Symbol:    buy.Symbol,
			Side:      order.Sell,
			Price:     i.sellPrice(sig),
			StopLoss:  i.stopLoss(sig, buy.Price, buy.Leverage, 0),
			Leverage:  buy.Leverage,
			Status:    order.Active,
			CreatedAt: now,
		}
		i.orders[sell.ID] = sell
		metrics.OrdersTotal.WithLabelValues(sell.Symbol, string(sell.Side)).Inc()
		i.log.Info().Str("order", buy.ID).Str("symbol", buy.Symbol).Msg("buy order filled")
		i.log.Info().Str("order", sell.ID).Str("linked", buy.ID).Float64("price", sell.Price).
			Float64("stopLoss", sell.StopLoss).Msg("new sell order created")
	}
}

func (i *Instance) updateSells(prices map[string]float64) {
	for _, o := range i.orders {
		if !o.Open() || o.Side != order.Sell {
			continue
		}
		cur, ok := prices[o.Symbol]
		if !ok {
			continue
		}
		sig, ok := i.store.Lookup(o.SignalID)
		if !ok {
			continue
		}

		newStop := i.stopLoss(sig, cur, o.Leverage, o.StopLoss)
		if newStop != o.StopLoss {
			i.log.Info().Str("order", o.ID).Float64("from", o.StopLoss).
				Float64("to", newStop).Float64("price", cur).Msg("stop loss moved")
			o.StopLoss = newStop
		}

		switch {
		case newStop > cur:
			o.Status = order.StoppedOut
			o.ClosedAt = time.Now()
			i.log.Info().Str("order", o.ID).Float64("price", cur).Msg("sell order stopped out")
		case cur >= o.Price:
			o.Status = order.Filled
			o.ClosedAt = time.Now()
			i.log.Info().Str("order", o.ID).Float64("price", cur).Msg("sell order filled")
		}
	}
}

func (i *Instance) expireBuys() {
	now := time.Now()
	for _, o := range i.orders {
		if !o.Open() || o.Side != order.Buy || o.ExpiresAt.IsZero() {
			continue
		}
		if o.ExpiresAt.Before(now) {
			o.Status = order.Expired
			o.ClosedAt = now
			i.log.Info().Str("order", o.ID).Str("symbol", o.Symbol).Msg("buy order expired")
		}
	}
}

// RemoveOrdersForSignal deletes every order referencing the signal,
// regardless of state. Manual correction only.
func (i *Instance) RemoveOrdersForSignal(signalID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for id, o := range i.orders {
		if o.SignalID == signalID {
			delete(i.orders, id)
		}
	}
}

// Orders returns a deep copy of the order map.
func (i *Instance) Orders() map[string]*order.Order {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make(map[string]*order.Order, len(i.orders))
	for id, o := range i.orders {
		cp := *o
		out[id] = &cp
	}
	return out
}

// ImportOrders replaces the order map, used when restoring saved state.
func (i *Instance) ImportOrders(orders map[string]*order.Order) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.orders = make(map[string]*order.Order, len(orders))
	for id, o := range orders {
		cp := *o
		i.orders[id] = &cp
	}
}

// Policy wrappers. A nil policy or a panicking policy degrades to the
// default; a broken rule must never take the instance down.

func (i *Instance) buyPrice(sig *signal.Signal, price float64) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			i.log.Warn().Interface("cause", r).Str("signal", sig.ID).Msg("buy policy failed, using default")
			v = sig.OptimalEntry
		}
	}()
	if i.policies.BuyPrice == nil {
		return sig.OptimalEntry
	}
	return i.policies.BuyPrice(sig, price)
}

func (i *Instance) sellPrice(sig *signal.Signal) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			i.log.Warn().Interface("cause", r).Str("signal", sig.ID).Msg("sell policy failed, using default")
			v = defaultSellPrice(sig)
		}
	}()
	if i.policies.SellPrice == nil {
		return defaultSellPrice(sig)
	}
	return i.policies.SellPrice(sig)
}

// defaultSellPrice is the last short-term target, or the first mid-term
// target when the short tier is empty. It must be total over any tier
// shape: sellPrice falls back here after recovering from a policy
// panic, so this function itself never indexes an empty tier.
func defaultSellPrice(sig *signal.Signal) float64 {
	if n := len(sig.Targets.Short); n > 0 {
		return sig.Targets.Short[n-1]
	}
	if len(sig.Targets.Mid) > 0 {
		return sig.Targets.Mid[0]
	}
	if all := sig.Targets.All(); len(all) > 0 {
		return all[len(all)-1]
	}
	return sig.OptimalEntry
}

// stopLoss ratchets: the result is the max of the policy value, the
// signal's own stop, the current stop, and, on first computation, a
// leverage-implied liquidation buffer. It never decreases.
func (i *Instance) stopLoss(sig *signal.Signal, price, leverage, currentStop float64) float64 {
	newStop := 0.0
	func() {
		defer func() {
			if r := recover(); r != nil {
				i.log.Warn().Interface("cause", r).Str("signal", sig.ID).Msg("stop policy failed, using default")
				newStop = 0
			}
		}()
		if i.policies.StopLoss != nil {
			newStop = i.policies.StopLoss(sig, price, leverage, currentStop)
		}
	}()

	limit := 0.0
	if currentStop == 0 {
		limit = price * (1 - 1/(2*leverage))
	}
	stop := newStop
	for _, candidate := range []float64{sig.StopLoss, limit, currentStop} {
		if candidate > stop {
			stop = candidate
		}
	}
	return stop
}

func (i *Instance) leverage(sig *signal.Signal) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			i.log.Warn().Interface("cause", r).Str("signal", sig.ID).Msg("leverage policy failed, using default")
			v = 1
		}
	}()
	if i.policies.Leverage == nil {
		return 1
	}
	return i.policies.Leverage(sig)
}
