// Package strategy implements the combinatorial policy catalog, the
// per-strategy order lifecycle state machine, and the balance replay
// used to rank strategies against each other.
package strategy

import "github.com/topgrade691028/binkiller/internal/signal"

// Rule tags, one axis each. A strategy name is the four chosen tags
// joined with "-"; each tag selects one policy function below.
type (
	BuyRule      string
	SellRule     string
	StopRule     string
	LeverageRule string
)

const (
	// BuyUrgent enters at the current market price.
	BuyUrgent BuyRule = "urgentbuy"
	// BuyOTE enters at the signal's optimal entry.
	BuyOTE BuyRule = "otebuy"
	// BuyMinEntry enters at the bottom of the entry band.
	BuyMinEntry BuyRule = "minentrybuy"

	// SellShortest exits at the first short-term target.
	SellShortest SellRule = "shortest"
	// SellShortMax exits at the highest short-term target.
	SellShortMax SellRule = "shortmax"
	// SellMidest exits at the lowest mid-term target, floored by the short tier.
	SellMidest SellRule = "midest"
	// SellMidMax exits at the highest mid-term target.
	SellMidMax SellRule = "midmax"
	// SellLongest exits at the highest mid- or long-term target.
	SellLongest SellRule = "longest"

	// StopOriginal keeps the signal's published stop loss.
	StopOriginal StopRule = "orgstop"
	// StopMinEntry stops just below the bottom of the entry band.
	StopMinEntry StopRule = "minentrystop"
	// StopDynamic trails the stop two targets behind the price ladder.
	StopDynamic StopRule = "dynamicstop"

	// LeverageHigh borrows at the signal's highest advertised multiplier.
	LeverageHigh LeverageRule = "highleverage"
	// LeverageNormal borrows at the lowest advertised multiplier.
	LeverageNormal LeverageRule = "normalleverage"
	// LeverageNone trades spot only.
	LeverageNone LeverageRule = "noleverage"
)

// Policy function shapes. Implementations may panic on signals missing
// the tiers they need; the instance recovers and substitutes defaults.
type (
	BuyPriceFunc  func(sig *signal.Signal, price float64) float64
	SellPriceFunc func(sig *signal.Signal) float64
	StopLossFunc  func(sig *signal.Signal, price, leverage, currentStop float64) float64
	LeverageFunc  func(sig *signal.Signal) float64
)

// Policies bundles the four selected policy functions; nil slots fall
// back to instance defaults.
type Policies struct {
	BuyPrice  BuyPriceFunc
	SellPrice SellPriceFunc
	StopLoss  StopLossFunc
	Leverage  LeverageFunc
}

var buyRules = map[BuyRule]BuyPriceFunc{
	BuyUrgent:   func(sig *signal.Signal, price float64) float64 { return price },
	BuyOTE:      func(sig *signal.Signal, price float64) float64 { return sig.OptimalEntry },
	BuyMinEntry: func(sig *signal.Signal, price float64) float64 { return minSlice(sig.Entry) },
}

var sellRules = map[SellRule]SellPriceFunc{
	SellShortest: func(sig *signal.Signal) float64 { return sig.Targets.Short[0] },
	SellShortMax: func(sig *signal.Signal) float64 { return maxSlice(sig.Targets.Short) },
	SellMidest: func(sig *signal.Signal) float64 {
		return maxSlice(append(append([]float64{}, sig.Targets.Short...), minSlice(sig.Targets.Mid)))
	},
	SellMidMax: func(sig *signal.Signal) float64 { return maxSlice(sig.Targets.Mid) },
	SellLongest: func(sig *signal.Signal) float64 {
		return maxSlice(append(append([]float64{}, sig.Targets.Mid...), sig.Targets.Long...))
	},
}

var stopRules = map[StopRule]StopLossFunc{
	StopOriginal: func(sig *signal.Signal, price, leverage, currentStop float64) float64 {
		return sig.StopLoss
	},
	StopMinEntry: func(sig *signal.Signal, price, leverage, currentStop float64) float64 {
		return minSlice(sig.Entry) * 0.99
	},
	StopDynamic: dynamicStopLoss,
}

var leverageRules = map[LeverageRule]LeverageFunc{
	LeverageHigh:   func(sig *signal.Signal) float64 { return sig.MaxLeverage() },
	LeverageNormal: func(sig *signal.Signal) float64 { return sig.MinLeverage() },
	LeverageNone:   func(sig *signal.Signal) float64 { return 1 },
}

// dynamicStopLoss walks the target ladder and keeps the stop two rungs
// behind the first target still above the current price. Before the
// first target is cleared the stop stays below the entry band.
func dynamicStopLoss(sig *signal.Signal, price, leverage, currentStop float64) float64 {
	entryStop := minSlice(sig.Entry) * 0.99
	points := append([]float64{sig.StopLoss, sig.StopLoss}, sig.Targets.All()...)
	for i := 2; i < len(points); i++ {
		if points[i] > price {
			return points[i-2]
		}
	}
	return entryStop
}

// minSlice panics on an empty slice, which the instance treats as a
// policy failure.
func minSlice(vals []float64) float64 {
	v := vals[0]
	for _, p := range vals[1:] {
		if p < v {
			v = p
		}
	}
	return v
}

func maxSlice(vals []float64) float64 {
	v := vals[0]
	for _, p := range vals[1:] {
		if p > v {
			v = p
		}
	}
	return v
}
