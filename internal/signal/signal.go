// Package signal standardizes payloads shared between alert ingestion and strategy layers.
package signal

import "time"

// Targets groups take-profit prices into the three tiers used by the
// alert feeds: short term, mid term, and long term. Any tier may be empty.
type Targets struct {
	Short []float64 `json:"short"`
	Mid   []float64 `json:"mid"`
	Long  []float64 `json:"long"`
}

// MarketContext is a snapshot of the reference instrument's daily move,
// attached at routing time and consumed as a risk filter downstream.
type MarketContext struct {
	Symbol         string  `json:"symbol"`
	DailyChangePct float64 `json:"dailyChangePct"`
}

// Signal is the canonical trading recommendation every parser normalizes to.
type Signal struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"` // base+quote concatenation, e.g. FILUSDT
	Direction string    `json:"direction"`
	Leverage  []float64 `json:"leverage"` // acceptable leverage multipliers, never empty
	Entry     []float64 `json:"entry"`    // intended entry band
	// OptimalEntry is the single representative entry price derived from
	// the entry band (the feed's "OTE" line when present).
	OptimalEntry  float64        `json:"optimalEntry"`
	Targets       Targets        `json:"targets"`
	StopLoss      float64        `json:"stopLoss"`
	CreatedAt     time.Time      `json:"createdAt"`
	MarketContext *MarketContext `json:"marketContext,omitempty"`
}

// MaxEntry returns the highest price of the entry band.
func (s *Signal) MaxEntry() float64 { return maxOf(s.Entry) }

// MinEntry returns the lowest price of the entry band.
func (s *Signal) MinEntry() float64 { return minOf(s.Entry) }

// MinLeverage returns the smallest acceptable leverage, 1 when unset.
func (s *Signal) MinLeverage() float64 {
	if len(s.Leverage) == 0 {
		return 1
	}
	return minOf(s.Leverage)
}

// MaxLeverage returns the largest acceptable leverage, 1 when unset.
func (s *Signal) MaxLeverage() float64 {
	if len(s.Leverage) == 0 {
		return 1
	}
	return maxOf(s.Leverage)
}

// All flattens the three tiers in ladder order.
func (t Targets) All() []float64 {
	out := make([]float64, 0, len(t.Short)+len(t.Mid)+len(t.Long))
	out = append(out, t.Short...)
	out = append(out, t.Mid...)
	out = append(out, t.Long...)
	return out
}

// MinShort returns the smallest short-term target, 0 when the tier is empty.
func (t Targets) MinShort() float64 { return minOf(t.Short) }

func minOf(vals []float64) float64 {
	v := 0.0
	for i, p := range vals {
		if i == 0 || p < v {
			v = p
		}
	}
	return v
}

func maxOf(vals []float64) float64 {
	v := 0.0
	for i, p := range vals {
		if i == 0 || p > v {
			v = p
		}
	}
	return v
}

// PriceUpdate is a full price-map push from the market data feed.
type PriceUpdate struct {
	Prices map[string]float64
	Ts     time.Time
}
