// Package checkout turns a set of line items into a placed order.
//
// Checkout from the cart is one logical unit: the order is placed and made
// durable first, and the cart is cleared only after that succeeds. A failed
// ledger write leaves the cart untouched.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/shopstate/internal/cart"
	"github.com/roach88/shopstate/internal/ledger"
	"github.com/roach88/shopstate/internal/model"
)

// Orchestrator is the Checkout Orchestrator.
type Orchestrator struct {
	cart   *cart.Store
	ledger *ledger.Ledger
}

// New returns an orchestrator over c and l.
func New(c *cart.Store, l *ledger.Ledger) *Orchestrator {
	return &Orchestrator{cart: c, ledger: l}
}

// FromCart places an order for every current cart line, capturing current
// unit prices, then clears the cart.
//
// Returns *model.EmptyCartError when the cart has no lines. If the order
// cannot be persisted, the ledger and the cart are left as they were and
// the *model.PersistenceError is returned.
func (o *Orchestrator) FromCart(ctx context.Context) (model.Order, error) {
	lines := o.cart.Lines()
	if len(lines) == 0 {
		return model.Order{}, &model.EmptyCartError{}
	}

	order, err := o.ledger.PlaceDurable(ctx, model.SnapshotLines(lines))
	if err != nil {
		slog.Warn("checkout failed, cart kept", "lines", len(lines), "error", err)
		return model.Order{}, fmt.Errorf("checkout from cart: %w", err)
	}

	o.cart.Clear()
	slog.Info("checkout complete", "order_id", order.ID, "source", "cart", "total", order.Total.String())
	return order, nil
}

// Direct places an order for caller-supplied items ("buy now") at the unit
// prices they carry. The cart is neither read nor modified.
//
// Returns *model.EmptyCartError when items is empty.
func (o *Orchestrator) Direct(ctx context.Context, items []model.LineItem) (model.Order, error) {
	if len(items) == 0 {
		return model.Order{}, &model.EmptyCartError{}
	}

	order, err := o.ledger.PlaceDurable(ctx, items)
	if err != nil {
		return model.Order{}, fmt.Errorf("checkout direct: %w", err)
	}

	slog.Info("checkout complete", "order_id", order.ID, "source", "direct", "total", order.Total.String())
	return order, nil
}

// BuyNow is Direct for a single product at its current price.
func (o *Orchestrator) BuyNow(ctx context.Context, p model.Product, quantity int) (model.Order, error) {
	return o.Direct(ctx, []model.LineItem{{Product: p, Quantity: quantity, UnitPrice: p.Price}})
}
