package exchange

import (
	"sync"

	"github.com/shopspring/decimal"
)

// SymbolFilter carries the exchange's numeric precision rules for one
// symbol: prices snap to multiples of TickSize, quantities to StepSize.
type SymbolFilter struct {
	TickSize decimal.Decimal
	StepSize decimal.Decimal
}

// FilterTable rounds logical prices and quantities down to exchange
// precision. Symbols without a registered filter pass through unchanged.
type FilterTable struct {
	mu      sync.RWMutex
	filters map[string]SymbolFilter
}

// NewFilterTable returns an empty table.
func NewFilterTable() *FilterTable {
	return &FilterTable{filters: make(map[string]SymbolFilter)}
}

// Set registers or replaces the filter for a symbol.
func (t *FilterTable) Set(symbol string, filter SymbolFilter) {
	t.mu.Lock()
	t.filters[symbol] = filter
	t.mu.Unlock()
}

// RoundPrice snaps price down to the symbol's tick size.
func (t *FilterTable) RoundPrice(symbol string, price float64) float64 {
	t.mu.RLock()
	filter, ok := t.filters[symbol]
	t.mu.RUnlock()
	if !ok || filter.TickSize.IsZero() {
		return price
	}
	return snap(price, filter.TickSize)
}

// RoundQuantity snaps quantity down to the symbol's step size.
func (t *FilterTable) RoundQuantity(symbol string, quantity float64) float64 {
	t.mu.RLock()
	filter, ok := t.filters[symbol]
	t.mu.RUnlock()
	if !ok || filter.StepSize.IsZero() {
		return quantity
	}
	return snap(quantity, filter.StepSize)
}

func snap(value float64, step decimal.Decimal) float64 {
	d := decimal.NewFromFloat(value)
	out, _ := d.Div(step).Floor().Mul(step).Float64()
	return out
}
