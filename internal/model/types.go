package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point amount in the store's single currency unit.
type Money = decimal.Decimal

// ProductID identifies a catalog product.
type ProductID string

// UnmarshalJSON accepts a string or an integer id. Remote catalog records
// carry numeric ids; they are kept as their decimal text.
func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("product id %s is not an integer", n)
	}
	*id = ProductID(n.String())
	return nil
}

// Product is a catalog entry. Once attached to a cart line, wishlist entry
// or order it is treated as an opaque value.
type Product struct {
	ID          ProductID `json:"id"`
	Title       string    `json:"title"`
	Price       Money     `json:"price"`
	Image       string    `json:"image,omitempty"`
	Description string    `json:"description,omitempty"`
	Rating      Rating    `json:"rating"`
}

// Rating is the catalog's review summary for a product.
type Rating struct {
	Rate  decimal.Decimal `json:"rate"`
	Count int64           `json:"count"`
}

// CartLine is one product-and-quantity entry in the cart.
// Quantity is always >= 1.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal returns unit price × quantity.
func (l CartLine) LineTotal() Money {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineItem is an order line with the unit price captured at checkout.
type LineItem struct {
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
	UnitPrice Money   `json:"unit_price"`
}

// LineTotal returns unit price × quantity.
func (li LineItem) LineTotal() Money {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// SnapshotLines converts cart lines to line items, capturing each
// product's current price as the unit price.
func SnapshotLines(lines []CartLine) []LineItem {
	items := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, LineItem{
			Product:   l.Product,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price,
		})
	}
	return items
}

// SumLineItems returns the fixed-point sum of unit price × quantity.
func SumLineItems(items []LineItem) Money {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.LineTotal())
	}
	return total
}

// Order is a placed order. Items and Total are immutable after creation;
// only Status changes.
type Order struct {
	ID        int64       `json:"id"`
	CreatedAt time.Time   `json:"date"`
	Items     []LineItem  `json:"items"`
	Total     Money       `json:"total"`
	Status    OrderStatus `json:"status"`
}

// Clone returns a deep copy so callers cannot mutate ledger-owned items.
func (o Order) Clone() Order {
	c := o
	c.Items = append([]LineItem(nil), o.Items...)
	return c
}
