// Package harness runs YAML scenarios against a real engine.
//
// Each scenario runs in a fresh in-memory SQLite store with a fixed session
// id, a deterministic logical clock and stepped wall time, so the journal
// trace is byte-identical across runs and can be compared to golden files.
//
// # Scenario Format
//
//	name: checkout_from_cart
//	description: "Checkout totals the cart and clears it"
//	persist_session: false
//	products:
//	  - id: "A"
//	    title: Backpack
//	    price: "10"
//	steps:
//	  - do: cart.add
//	    args: { product: "A", quantity: 2 }
//	  - do: checkout.cart
//	  - do: orders.cancel
//	    args: { order: 1 }
//	    fail_writes: true
//	    expect: { warning: PERSISTENCE }
//	assertions:
//	  - type: cart_lines
//	    count: 0
//	  - type: order_status
//	    order: 1
//	    status: Cancelled
//
// A step without expect must succeed with no warning. expect.error names the
// error code the step must fail with; expect.warning names the code of a
// non-fatal write failure. fail_writes makes every KV write fail for the
// duration of that step.
//
// # Assertion Types
//
//   - cart_total: cart total equals value
//   - cart_lines: number of cart lines equals count
//   - cart_quantity: quantity of product's line equals count (0 = absent)
//   - wishlist_contains: product is saved (present: false inverts)
//   - wishlist_size: number of saved products equals count
//   - order_count: number of orders in the ledger equals count
//   - order_status: status of order equals status
//   - order_total: total of order equals value
//   - recent_first: the most recently viewed product is product
package harness
