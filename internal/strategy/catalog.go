package strategy

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Axes lists the rule tags of the four policy axes in their fixed
// order: buy rule, sell rule, stop rule, leverage rule.
type Axes struct {
	Buy      []BuyRule
	Sell     []SellRule
	Stop     []StopRule
	Leverage []LeverageRule
}

// DefaultAxes is the full production catalog: 3×5×3×3 = 135 strategies.
func DefaultAxes() Axes {
	return Axes{
		Buy:      []BuyRule{BuyUrgent, BuyOTE, BuyMinEntry},
		Sell:     []SellRule{SellShortest, SellShortMax, SellMidest, SellMidMax, SellLongest},
		Stop:     []StopRule{StopOriginal, StopMinEntry, StopDynamic},
		Leverage: []LeverageRule{LeverageHigh, LeverageNormal, LeverageNone},
	}
}

// Names expands the cross product of the four axes into strategy names,
// tags joined with "-", buy axis varying slowest.
func (a Axes) Names() []string {
	axes := [][]string{
		toStrings(a.Buy),
		toStrings(a.Sell),
		toStrings(a.Stop),
		toStrings(a.Leverage),
	}
	return combine("", axes, 0)
}

func combine(prefix string, axes [][]string, depth int) []string {
	if depth == len(axes) {
		return []string{prefix}
	}
	var names []string
	for _, tag := range axes[depth] {
		key := tag
		if prefix != "" {
			key = prefix + "-" + tag
		}
		names = append(names, combine(key, axes, depth+1)...)
	}
	return names
}

func toStrings[T ~string](tags []T) []string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = string(tag)
	}
	return out
}

// policiesFor selects one policy per axis by matching the name's tags
// against the rule tables. Tags without a table entry leave that axis
// nil, so the instance falls back to its defaults.
func policiesFor(name string) Policies {
	var p Policies
	for _, tag := range strings.Split(name, "-") {
		if fn, ok := buyRules[BuyRule(tag)]; ok {
			p.BuyPrice = fn
		}
		if fn, ok := sellRules[SellRule(tag)]; ok {
			p.SellPrice = fn
		}
		if fn, ok := stopRules[StopRule(tag)]; ok {
			p.StopLoss = fn
		}
		if fn, ok := leverageRules[LeverageRule(tag)]; ok {
			p.Leverage = fn
		}
	}
	return p
}

// Build expands the axes into independent strategy instances, in
// catalog order. Build is deterministic; instances never share orders.
func Build(axes Axes, store SignalStore, buyLifetime time.Duration, log zerolog.Logger) []*Instance {
	names := axes.Names()
	instances := make([]*Instance, 0, len(names))
	for _, name := range names {
		instances = append(instances, NewInstance(name, policiesFor(name), store, buyLifetime, log))
	}
	return instances
}
