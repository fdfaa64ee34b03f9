package engine

import (
	"fmt"
	"sort"

	"github.com/roach88/shopstate/internal/model"
)

// Kind names a command. Kinds are stable: they appear in the journal and
// in scenario files.
type Kind string

const (
	KindCartAdd       Kind = "cart.add"
	KindCartRemove    Kind = "cart.remove"
	KindCartIncrement Kind = "cart.inc"
	KindCartDecrement Kind = "cart.dec"
	KindCartClear     Kind = "cart.clear"

	KindWishlistAdd    Kind = "wishlist.add"
	KindWishlistRemove Kind = "wishlist.remove"
	KindWishlistToggle Kind = "wishlist.toggle"

	KindOrderAdvance Kind = "orders.advance"
	KindOrderDeliver Kind = "orders.deliver"
	KindOrderCancel  Kind = "orders.cancel"
	KindOrderRemove  Kind = "orders.remove"

	KindCheckoutCart   Kind = "checkout.cart"
	KindCheckoutDirect Kind = "checkout.direct"

	KindView Kind = "view"
)

// argument requirements per kind
type argSet uint8

const (
	argProduct argSet = 1 << iota
	argQuantity
	argOrder
)

var kinds = map[Kind]argSet{
	KindCartAdd:        argProduct | argQuantity,
	KindCartRemove:     argProduct,
	KindCartIncrement:  argProduct,
	KindCartDecrement:  argProduct,
	KindCartClear:      0,
	KindWishlistAdd:    argProduct,
	KindWishlistRemove: argProduct,
	KindWishlistToggle: argProduct,
	KindOrderAdvance:   argOrder,
	KindOrderDeliver:   argOrder,
	KindOrderCancel:    argOrder,
	KindOrderRemove:    argOrder,
	KindCheckoutCart:   0,
	KindCheckoutDirect: argProduct | argQuantity,
	KindView:           argProduct,
}

// Kinds returns every command kind, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseKind validates a command name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kinds[k]; !ok {
		return "", fmt.Errorf("%w: unknown command %q", model.ErrInvalidArgument, s)
	}
	return k, nil
}

// Command is one engine operation. Only the fields its Kind uses are set.
// Quantity 0 means 1 for kinds that take a quantity.
type Command struct {
	Kind      Kind            `json:"kind"`
	ProductID model.ProductID `json:"product_id,omitempty"`
	Quantity  int             `json:"quantity,omitempty"`
	OrderID   int64           `json:"order_id,omitempty"`
}

// Validate checks that the fields the kind requires are present.
func (c Command) Validate() error {
	need, ok := kinds[c.Kind]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", model.ErrInvalidArgument, c.Kind)
	}
	if need&argProduct != 0 && c.ProductID == "" {
		return fmt.Errorf("%w: %s requires a product id", model.ErrInvalidArgument, c.Kind)
	}
	if need&argOrder != 0 && c.OrderID <= 0 {
		return fmt.Errorf("%w: %s requires a positive order id", model.ErrInvalidArgument, c.Kind)
	}
	if need&argQuantity == 0 && c.Quantity != 0 {
		return fmt.Errorf("%w: %s does not take a quantity", model.ErrInvalidArgument, c.Kind)
	}
	return nil
}

func (c Command) quantity() int {
	if c.Quantity == 0 {
		return 1
	}
	return c.Quantity
}

// Result is the outcome of an executed command.
type Result struct {
	// Seq is the logical clock value the command was journaled under.
	Seq int64 `json:"seq"`
	// Order is set for checkout and order lifecycle commands when the order
	// exists after the command.
	Order *model.Order `json:"order,omitempty"`
	// Warning carries a non-fatal *model.PersistenceError: the command took
	// effect in memory but its write failed.
	Warning error `json:"-"`
}
