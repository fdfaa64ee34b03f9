package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/roach88/shopstate/internal/model"
	"github.com/roach88/shopstate/internal/store"
)

// CartView is the cart as rendered by cart commands.
type CartView struct {
	Lines    []model.CartLine `json:"lines"`
	Quantity int              `json:"quantity"`
	Total    model.Money      `json:"total"`
}

func (v CartView) String() string {
	if len(v.Lines) == 0 {
		return "Cart is empty."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tQTY\tPRICE\tLINE TOTAL")
	for _, l := range v.Lines {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.Product.ID, l.Product.Title, l.Quantity,
			l.Product.Price.StringFixed(2), l.LineTotal().StringFixed(2))
	}
	w.Flush()
	fmt.Fprintf(&b, "Total: %s (%d items)", v.Total.StringFixed(2), v.Quantity)
	return b.String()
}

// ProductsView is a list of products (wishlist, recently viewed, catalog).
type ProductsView struct {
	Title    string          `json:"-"`
	Products []model.Product `json:"products"`
}

func (v ProductsView) String() string {
	if len(v.Products) == 0 {
		return v.Title + ": none."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", v.Title)
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, p := range v.Products {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Title, p.Price.StringFixed(2))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// OrderView is a single order.
type OrderView struct {
	Order model.Order `json:"order"`
}

func (v OrderView) String() string {
	o := v.Order
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d  %s  %s  total %s", o.ID, o.Status, o.CreatedAt.Format("2006-01-02 15:04"), o.Total.StringFixed(2))
	if step, ok := o.Status.Progress(); ok {
		fmt.Fprintf(&b, "  (step %d of 4)", step+1)
	}
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, li := range o.Items {
		fmt.Fprintf(w, "\n  %s\t%s\tx%d\t%s", li.Product.ID, li.Product.Title, li.Quantity, li.LineTotal().StringFixed(2))
	}
	w.Flush()
	return b.String()
}

// OrdersView lists orders newest first.
type OrdersView struct {
	Orders []model.Order `json:"orders"`
}

func (v OrdersView) String() string {
	if len(v.Orders) == 0 {
		return "No orders."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tDATE\tITEMS\tTOTAL")
	for _, o := range v.Orders {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", o.ID, o.Status, o.CreatedAt.Format("2006-01-02 15:04"),
			len(o.Items), o.Total.StringFixed(2))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// OrderRemovedView reports a removed order.
type OrderRemovedView struct {
	Removed int64 `json:"removed"`
}

func (v OrderRemovedView) String() string {
	return fmt.Sprintf("Order #%d removed.", v.Removed)
}

// OrderMissingView reports a lifecycle command on an unknown order id.
type OrderMissingView struct {
	OrderID int64 `json:"order_id"`
	Changed bool  `json:"changed"`
}

func (v OrderMissingView) String() string {
	return fmt.Sprintf("No order #%d; nothing changed.", v.OrderID)
}

// TraceView is a slice of the command journal.
type TraceView struct {
	Entries []store.Entry `json:"entries"`
}

func (v TraceView) String() string {
	if len(v.Entries) == 0 {
		return "No journal entries."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tSESSION\tCOMMAND\tARGS\tOUTCOME")
	for _, e := range v.Entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.Seq, e.Session, e.Command, e.Args, e.Outcome)
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
