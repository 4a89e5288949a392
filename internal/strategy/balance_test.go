package strategy

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topgrade691028/binkiller/internal/order"
)

func pairedTrade(signalID, symbol string, buyPrice, sellPrice, leverage float64, closed time.Time, stopped bool) map[string]*order.Order {
	buy := &order.Order{
		ID:        signalID + "-buy",
		SignalID:  signalID,
		Symbol:    symbol,
		Side:      order.Buy,
		Price:     buyPrice,
		Leverage:  leverage,
		Status:    order.Filled,
		CreatedAt: closed.Add(-time.Hour),
		ClosedAt:  closed.Add(-time.Hour),
	}
	status := order.Filled
	if stopped {
		status = order.StoppedOut
	}
	sell := &order.Order{
		ID:        signalID + "-sell",
		LinkedID:  buy.ID,
		SignalID:  signalID,
		Symbol:    symbol,
		Side:      order.Sell,
		Price:     sellPrice,
		StopLoss:  buyPrice * 0.9,
		Leverage:  leverage,
		Status:    status,
		CreatedAt: closed.Add(-time.Hour),
		ClosedAt:  closed,
	}
	return map[string]*order.Order{buy.ID: buy, sell.ID: sell}
}

func TestSimulateBalanceLeveragedRoundTrip(t *testing.T) {
	inst := newTestInstance(mapStore{})
	inst.ImportOrders(pairedTrade("1", "FILUSDT", 100, 110, 2, time.Now(), false))

	snap := inst.SimulateBalance(1000, 0.5, nil, 30, map[string]float64{"FILUSDT": 110})

	// Buy: 500 committed, 500 borrowed, holding 500*2/100 = 10.
	// Sell: proceeds 10*110 - 500 = 600, loan repaid.
	require.InDelta(t, 1100, snap.Spot, 1e-9)
	require.InDelta(t, 0, snap.Loan, 1e-9)
	require.InDelta(t, 1100, snap.Total, 1e-9)
	assert.Empty(t, snap.Holdings)

	trade, ok := snap.Trades["1"]
	require.True(t, ok)
	assert.Equal(t, "FILUSDT", trade.Symbol)
	assert.InDelta(t, 500, trade.Entry, 1e-9)
	assert.InDelta(t, 600, trade.Exit, 1e-9)
	assert.False(t, trade.ClosedAt.IsZero())
}

func TestSimulateBalanceStoppedOutUsesStopPrice(t *testing.T) {
	inst := newTestInstance(mapStore{})
	inst.ImportOrders(pairedTrade("1", "FILUSDT", 100, 110, 1, time.Now(), true))

	snap := inst.SimulateBalance(1000, 0.5, nil, 30, nil)

	// Stop at 90: holding 5, proceeds 5*90 = 450 against 500 entry.
	require.InDelta(t, 950, snap.Total, 1e-9)
	require.InDelta(t, 0, snap.Loan, 1e-9)
}

func TestSimulateBalanceAbsoluteSizeCap(t *testing.T) {
	inst := newTestInstance(mapStore{})
	inst.ImportOrders(pairedTrade("1", "FILUSDT", 100, 110, 1, time.Now(), false))

	snap := inst.SimulateBalance(1000, 200, nil, 30, nil)

	// sizePerTrade above 1 is an absolute cap: 200 in, 220 out.
	require.InDelta(t, 1020, snap.Total, 1e-9)
}

func TestSimulateBalanceOpenPositionMarkedToMarket(t *testing.T) {
	inst := newTestInstance(mapStore{})
	orders := pairedTrade("1", "FILUSDT", 100, 110, 1, time.Now(), false)
	delete(orders, "1-sell")
	inst.ImportOrders(orders)

	snap := inst.SimulateBalance(1000, 0.5, nil, 30, map[string]float64{"FILUSDT": 120})

	// 500 spot left, 5 FIL held worth 600.
	require.InDelta(t, 500, snap.Spot, 1e-9)
	require.InDelta(t, 1100, snap.Total, 1e-9)
	assert.InDelta(t, 5, snap.Holdings["FILUSDT"], 1e-9)
	assert.InDelta(t, 600, snap.Values["FILUSDT"], 1e-9)
}

func TestSimulateBalanceWindowAndExclusions(t *testing.T) {
	inst := newTestInstance(mapStore{})
	orders := pairedTrade("old", "FILUSDT", 100, 200, 1, time.Now().AddDate(0, 0, -60), false)
	for id, o := range pairedTrade("excluded", "SHIBUSDT", 1, 2, 1, time.Now(), false) {
		orders[id] = o
	}
	inst.ImportOrders(orders)

	snap := inst.SimulateBalance(1000, 0.5, []string{"SHIBUSDT"}, 30, nil)

	require.InDelta(t, 1000, snap.Total, 1e-9)
	assert.Empty(t, snap.Trades)
}

func TestSimulateBalanceIgnoresNonClosedOrders(t *testing.T) {
	inst := newTestInstance(mapStore{})
	now := time.Now()
	inst.ImportOrders(map[string]*order.Order{
		"a": {ID: "a", SignalID: "1", Symbol: "FILUSDT", Side: order.Buy, Price: 100, Leverage: 1, Status: order.Active, CreatedAt: now},
		"b": {ID: "b", SignalID: "2", Symbol: "FILUSDT", Side: order.Buy, Price: 100, Leverage: 1, Status: order.Expired, CreatedAt: now, ClosedAt: now},
		"c": {ID: "c", SignalID: "3", Symbol: "FILUSDT", Side: order.Buy, Price: 100, Leverage: 1, Status: order.Superseded, CreatedAt: now, ClosedAt: now},
	})

	snap := inst.SimulateBalance(1000, 0.5, nil, 30, nil)
	require.InDelta(t, 1000, snap.Total, 1e-9)
}

func TestSimulateBalanceIdempotent(t *testing.T) {
	inst := newTestInstance(mapStore{})
	orders := pairedTrade("1", "FILUSDT", 100, 110, 2, time.Now(), false)
	for id, o := range pairedTrade("2", "ETHUSDT", 2000, 1800, 1, time.Now().Add(time.Minute), true) {
		orders[id] = o
	}
	inst.ImportOrders(orders)

	prices := map[string]float64{"FILUSDT": 110, "ETHUSDT": 1900}
	first := inst.SimulateBalance(1000, 0.5, nil, 30, prices)
	second := inst.SimulateBalance(1000, 0.5, nil, 30, prices)
	require.Equal(t, first, second)
}

func TestRegistryRankOrdersByTotal(t *testing.T) {
	winner := NewInstance("winner", Policies{}, mapStore{}, time.Hour, zerolog.Nop())
	winner.ImportOrders(pairedTrade("1", "FILUSDT", 100, 150, 1, time.Now(), false))
	loser := NewInstance("loser", Policies{}, mapStore{}, time.Hour, zerolog.Nop())
	loser.ImportOrders(pairedTrade("1", "FILUSDT", 100, 110, 1, time.Now(), true))

	reg := NewRegistry([]*Instance{loser, winner}, staticPrices{"FILUSDT": 120}, zerolog.Nop())
	ranked := reg.Rank(1000, 0.5, nil, 30)

	require.Len(t, ranked, 2)
	assert.Equal(t, "winner", ranked[0].Strategy)
	assert.Greater(t, ranked[0].Total, ranked[1].Total)
	assert.Equal(t, "winner", reg.Best(1000, 0.5, nil, 30))
}

func TestRegistryRankStableOnTies(t *testing.T) {
	a := NewInstance("a", Policies{}, mapStore{}, time.Hour, zerolog.Nop())
	b := NewInstance("b", Policies{}, mapStore{}, time.Hour, zerolog.Nop())

	reg := NewRegistry([]*Instance{a, b}, staticPrices{}, zerolog.Nop())
	ranked := reg.Rank(1000, 0.5, nil, 30)

	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].Strategy)
	assert.Equal(t, "b", ranked[1].Strategy)
}

func TestRegistryStateRoundTrip(t *testing.T) {
	inst := NewInstance("only", Policies{}, mapStore{}, time.Hour, zerolog.Nop())
	inst.ImportOrders(pairedTrade("1", "FILUSDT", 100, 110, 2, time.Now(), false))
	reg := NewRegistry([]*Instance{inst}, staticPrices{}, zerolog.Nop())

	exported := reg.ExportState()

	fresh := NewInstance("only", Policies{}, mapStore{}, time.Hour, zerolog.Nop())
	reg2 := NewRegistry([]*Instance{fresh}, staticPrices{}, zerolog.Nop())
	reg2.ImportState(exported)

	require.Equal(t, exported, reg2.ExportState())
}

type staticPrices map[string]float64

func (p staticPrices) Prices() map[string]float64 {
	out := make(map[string]float64, len(p))
	for sym, px := range p {
		out[sym] = px
	}
	return out
}

func (p staticPrices) CurrentPrice(symbol string) (float64, bool) {
	px, ok := p[symbol]
	return px, ok
}
