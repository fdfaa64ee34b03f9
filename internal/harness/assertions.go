package harness

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/shopstate/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Seq, event.Command, event.Args, event.Outcome)
		}
	}

	return buf.String()
}

// evaluate checks one assertion against the engine's final state.
func (h *Harness) evaluate(a Assertion, trace []TraceEvent) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: trace}
	}

	switch a.Type {
	case AssertCartTotal:
		return assertMoney(a.Value, h.engine.Cart().Total(), "cart total", fail)

	case AssertCartLines:
		if got := h.engine.Cart().Len(); got != *a.Count {
			return fail(fmt.Sprintf("%d cart lines", *a.Count), fmt.Sprintf("%d cart lines", got))
		}

	case AssertCartQuantity:
		got := 0
		if line, ok := h.engine.Cart().Line(model.ProductID(a.Product)); ok {
			got = line.Quantity
		}
		if got != *a.Count {
			return fail(fmt.Sprintf("quantity %d of %s", *a.Count, a.Product), fmt.Sprintf("quantity %d", got))
		}

	case AssertWishlistContains:
		want := a.Present == nil || *a.Present
		if got := h.engine.Wishlist().Contains(model.ProductID(a.Product)); got != want {
			return fail(fmt.Sprintf("wishlist contains %s = %t", a.Product, want), fmt.Sprintf("%t", got))
		}

	case AssertWishlistSize:
		if got := h.engine.Wishlist().Len(); got != *a.Count {
			return fail(fmt.Sprintf("%d saved products", *a.Count), fmt.Sprintf("%d saved products", got))
		}

	case AssertOrderCount:
		if got := h.engine.Ledger().Len(); got != *a.Count {
			return fail(fmt.Sprintf("%d orders", *a.Count), fmt.Sprintf("%d orders", got))
		}

	case AssertOrderStatus:
		o, ok := h.engine.Ledger().Get(a.Order)
		if !ok {
			return fail(fmt.Sprintf("order %d with status %s", a.Order, a.Status), "order not found")
		}
		want, err := model.ParseStatus(a.Status)
		if err != nil {
			return err
		}
		if o.Status != want {
			return fail(fmt.Sprintf("order %d status %s", a.Order, want), o.Status.String())
		}

	case AssertOrderTotal:
		o, ok := h.engine.Ledger().Get(a.Order)
		if !ok {
			return fail(fmt.Sprintf("order %d with total %s", a.Order, a.Value), "order not found")
		}
		return assertMoney(a.Value, o.Total, fmt.Sprintf("order %d total", a.Order), fail)

	case AssertRecentFirst:
		items := h.engine.Recent().Items()
		if len(items) == 0 {
			return fail(fmt.Sprintf("%s viewed most recently", a.Product), "no recently viewed products")
		}
		if items[0].ID != model.ProductID(a.Product) {
			return fail(fmt.Sprintf("%s viewed most recently", a.Product), string(items[0].ID))
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// assertMoney compares amounts numerically, so "10" matches "10.00".
func assertMoney(want string, got model.Money, what string, fail func(string, string) error) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return fmt.Errorf("%s: invalid expected amount %q: %w", what, want, err)
	}
	if !w.Equal(got) {
		return fail(fmt.Sprintf("%s %s", what, w), got.String())
	}
	return nil
}
