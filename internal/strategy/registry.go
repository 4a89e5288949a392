package strategy

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/topgrade691028/binkiller/internal/order"
	"github.com/topgrade691028/binkiller/internal/signal"
)

// PriceSource supplies the current price map for signal sweeps and
// instance order creation.
type PriceSource interface {
	Prices() map[string]float64
	CurrentPrice(symbol string) (float64, bool)
}

// State is the serializable order collection of every strategy, keyed
// by strategy name then order id.
type State map[string]map[string]*order.Order

// Registry owns the catalog-ordered strategy instances and broadcasts
// signal and price events to all of them. Each instance processes
// events independently; broadcasts run one goroutine per instance.
type Registry struct {
	log       zerolog.Logger
	prices    PriceSource
	names     []string
	instances map[string]*Instance
}

// NewRegistry wraps the built instances, preserving catalog order for
// stable ranking ties.
func NewRegistry(instances []*Instance, prices PriceSource, log zerolog.Logger) *Registry {
	r := &Registry{
		log:       log,
		prices:    prices,
		instances: make(map[string]*Instance, len(instances)),
	}
	for _, inst := range instances {
		r.names = append(r.names, inst.Name())
		r.instances[inst.Name()] = inst
	}
	return r
}

// Names returns the strategy names in catalog order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Instance resolves one strategy by name.
func (r *Registry) Instance(name string) (*Instance, bool) {
	inst, ok := r.instances[name]
	return inst, ok
}

// OnSignal broadcasts the signal to every instance, then immediately
// sweeps current prices so an already-crossed entry fills on the same
// event rather than the next tick.
func (r *Registry) OnSignal(sig *signal.Signal) {
	price, _ := r.prices.CurrentPrice(sig.Symbol)
	r.broadcast(func(inst *Instance) { inst.OnNewSignal(sig, price) })
	r.OnPriceUpdate(r.prices.Prices())
}

// OnPriceUpdate broadcasts the full price map to every instance.
func (r *Registry) OnPriceUpdate(prices map[string]float64) {
	if len(prices) == 0 {
		return
	}
	r.broadcast(func(inst *Instance) { inst.OnPriceUpdate(prices) })
}

// RemoveSignal removes all orders referencing the signal from every
// instance.
func (r *Registry) RemoveSignal(signalID string) {
	r.broadcast(func(inst *Instance) { inst.RemoveOrdersForSignal(signalID) })
}

func (r *Registry) broadcast(fn func(*Instance)) {
	var wg sync.WaitGroup
	wg.Add(len(r.names))
	for _, name := range r.names {
		inst := r.instances[name]
		go func() {
			defer wg.Done()
			fn(inst)
		}()
	}
	wg.Wait()
}

// Rank replays every instance's balance and returns snapshots ordered
// descending by total, catalog order breaking ties.
func (r *Registry) Rank(startingCapital, sizePerTrade float64, excluded []string, windowDays int) []Snapshot {
	prices := r.prices.Prices()
	snapshots := make([]Snapshot, len(r.names))

	var wg sync.WaitGroup
	wg.Add(len(r.names))
	for idx, name := range r.names {
		idx := idx
		inst := r.instances[name]
		go func() {
			defer wg.Done()
			snapshots[idx] = inst.SimulateBalance(startingCapital, sizePerTrade, excluded, windowDays, prices)
		}()
	}
	wg.Wait()

	sort.SliceStable(snapshots, func(a, b int) bool {
		return snapshots[a].Total > snapshots[b].Total
	})
	return snapshots
}

// Best returns the top-ranked strategy name for the given inputs.
func (r *Registry) Best(startingCapital, sizePerTrade float64, excluded []string, windowDays int) string {
	ranked := r.Rank(startingCapital, sizePerTrade, excluded, windowDays)
	if len(ranked) == 0 {
		return ""
	}
	return ranked[0].Strategy
}

// ExportState deep-copies every instance's order map for persistence.
func (r *Registry) ExportState() State {
	state := make(State, len(r.names))
	for _, name := range r.names {
		state[name] = r.instances[name].Orders()
	}
	return state
}

// ImportState restores order maps for strategies present in the state.
// Unknown strategy names are ignored.
func (r *Registry) ImportState(state State) {
	for name, orders := range state {
		inst, ok := r.instances[name]
		if !ok {
			r.log.Warn().Str("strategy", name).Msg("ignoring state for unknown strategy")
			continue
		}
		inst.ImportOrders(orders)
	}
}
