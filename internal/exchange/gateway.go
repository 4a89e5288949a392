package exchange

import (
	"context"

	"github.com/topgrade691028/binkiller/internal/order"
)

// Gateway submits trading decisions to an exchange. The strategy core
// never calls it; only the execution layer on top does. Implementations
// own exchange-specific numeric precision via the Round methods.
type Gateway interface {
	PlaceOrder(ctx context.Context, o *order.Order, quantity float64) (string, error)
	CancelOrder(ctx context.Context, externalID string) error
	OrderStatus(ctx context.Context, externalID string) (order.Status, error)
	RoundPrice(symbol string, price float64) float64
	RoundQuantity(symbol string, quantity float64) float64
}
