// Package execution sits on top of the strategy core and turns the
// top-ranked strategy's decisions into gateway submissions. The core
// never reaches in here; this layer only consumes its outputs.
package execution

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/topgrade691028/binkiller/internal/exchange"
	"github.com/topgrade691028/binkiller/internal/metrics"
	"github.com/topgrade691028/binkiller/internal/order"
	"github.com/topgrade691028/binkiller/internal/signal"
	"github.com/topgrade691028/binkiller/internal/strategy"
)

// Params bundles the trading knobs the trader shares with the ranker.
type Params struct {
	StartingCapital  float64
	SizePerTrade     float64
	ExcludedSymbols  []string
	WindowDays       int
	PanicDailyChange float64
}

// Trader subscribes to routed signals, applies the risk filters, and
// submits the best strategy's entry decision to the gateway. The best
// strategy is re-ranked per decision instead of being held as ambient
// state.
type Trader struct {
	log      zerolog.Logger
	registry *strategy.Registry
	gateway  exchange.Gateway
	params   Params

	mu        sync.Mutex
	submitted map[string]string // external order id -> internal order id
}

// NewTrader wires the trader against the registry and gateway.
func NewTrader(registry *strategy.Registry, gateway exchange.Gateway, params Params, log zerolog.Logger) *Trader {
	return &Trader{log: log, registry: registry, gateway: gateway, params: params,
		submitted: make(map[string]string)}
}

// OnSignal implements the router subscriber contract.
func (t *Trader) OnSignal(sig *signal.Signal) {
	if sig.MarketContext != nil && sig.MarketContext.DailyChangePct < t.params.PanicDailyChange {
		t.log.Info().Str("signal", sig.ID).Float64("dailyChange", sig.MarketContext.DailyChangePct).
			Msg("reference asset falling too hard, skipping trade")
		return
	}
	for _, sym := range t.params.ExcludedSymbols {
		if sym == sig.Symbol {
			t.log.Info().Str("symbol", sig.Symbol).Msg("symbol excluded, skipping trade")
			return
		}
	}

	best := t.registry.Best(t.params.StartingCapital, t.params.SizePerTrade, t.params.ExcludedSymbols, t.params.WindowDays)
	inst, ok := t.registry.Instance(best)
	if !ok {
		return
	}

	buy := activeBuyFor(inst, sig.ID)
	if buy == nil {
		// The best strategy declined this signal (active sell in the way).
		return
	}

	amount := t.params.StartingCapital * t.params.SizePerTrade
	if t.params.SizePerTrade > 1 {
		amount = t.params.SizePerTrade
	}
	price := t.gateway.RoundPrice(buy.Symbol, buy.Price)
	quantity := t.gateway.RoundQuantity(buy.Symbol, amount*buy.Leverage/buy.Price)

	submit := *buy
	submit.Price = price
	externalID, err := t.gateway.PlaceOrder(context.Background(), &submit, quantity)
	if err != nil {
		t.log.Error().Err(err).Str("symbol", buy.Symbol).Msg("gateway rejected order")
		return
	}
	t.mu.Lock()
	t.submitted[externalID] = buy.ID
	t.mu.Unlock()

	metrics.DecisionsTotal.WithLabelValues(buy.Symbol, string(buy.Side)).Inc()
	t.log.Info().Str("strategy", best).Str("symbol", buy.Symbol).Str("external", externalID).
		Float64("price", price).Float64("qty", quantity).Msg("decision submitted")
}

// Reconcile polls the gateway for every submitted order until ctx is
// done. Orders the gateway no longer knows, or reports closed, are
// dropped from tracking.
func (t *Trader) Reconcile(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.reconcileOnce(ctx)
		}
	}
}

func (t *Trader) reconcileOnce(ctx context.Context) {
	t.mu.Lock()
	pending := make(map[string]string, len(t.submitted))
	for ext, id := range t.submitted {
		pending[ext] = id
	}
	t.mu.Unlock()

	for ext, id := range pending {
		status, err := t.gateway.OrderStatus(ctx, ext)
		if err != nil {
			t.log.Warn().Err(err).Str("external", ext).Str("order", id).Msg("order unknown to gateway, dropping")
			t.forget(ext)
			continue
		}
		if status != order.Active {
			t.log.Info().Str("external", ext).Str("order", id).Str("status", string(status)).Msg("order settled on gateway")
			t.forget(ext)
		}
	}
}

func (t *Trader) forget(externalID string) {
	t.mu.Lock()
	delete(t.submitted, externalID)
	t.mu.Unlock()
}

// Tracked returns the number of submitted orders awaiting reconciliation.
func (t *Trader) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.submitted)
}

func activeBuyFor(inst *strategy.Instance, signalID string) *order.Order {
	for _, o := range inst.Orders() {
		if o.SignalID == signalID && o.Side == order.Buy && o.Open() {
			return o
		}
	}
	return nil
}
