package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/topgrade691028/binkiller/internal/exchange"
	"github.com/topgrade691028/binkiller/internal/order"
)

// PaperGateway is a logging implementation of the exchange gateway.
// It records placements in memory so order status can be polled; wire a
// real exchange connector behind the same interface for live trading.
type PaperGateway struct {
	log     zerolog.Logger
	filters *exchange.FilterTable

	mu     sync.Mutex
	placed map[string]order.Status
}

var _ exchange.Gateway = (*PaperGateway)(nil)

// NewPaperGateway builds the stub gateway around a precision table.
func NewPaperGateway(filters *exchange.FilterTable, log zerolog.Logger) *PaperGateway {
	if filters == nil {
		filters = exchange.NewFilterTable()
	}
	return &PaperGateway{log: log, filters: filters, placed: make(map[string]order.Status)}
}

// PlaceOrder logs the request and returns a synthetic external id.
func (g *PaperGateway) PlaceOrder(ctx context.Context, o *order.Order, quantity float64) (string, error) {
	externalID := uuid.NewString()
	g.mu.Lock()
	g.placed[externalID] = order.Active
	g.mu.Unlock()
	g.log.Info().Str("sym", o.Symbol).Str("side", string(o.Side)).
		Float64("qty", quantity).Float64("px", o.Price).Str("external", externalID).Msg("place order (paper)")
	return externalID, nil
}

// CancelOrder drops a placed order.
func (g *PaperGateway) CancelOrder(ctx context.Context, externalID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.placed[externalID]; !ok {
		return fmt.Errorf("unknown external order %s", externalID)
	}
	delete(g.placed, externalID)
	g.log.Info().Str("external", externalID).Msg("cancel order (paper)")
	return nil
}

// OrderStatus reports the stored status for a placed order.
func (g *PaperGateway) OrderStatus(ctx context.Context, externalID string) (order.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.placed[externalID]
	if !ok {
		return "", fmt.Errorf("unknown external order %s", externalID)
	}
	return status, nil
}

// RoundPrice delegates to the precision table.
func (g *PaperGateway) RoundPrice(symbol string, price float64) float64 {
	return g.filters.RoundPrice(symbol, price)
}

// RoundQuantity delegates to the precision table.
func (g *PaperGateway) RoundQuantity(symbol string, quantity float64) float64 {
	return g.filters.RoundQuantity(symbol, quantity)
}
