// Package cart implements the session cart: an ordered list of product
// lines keyed by product id.
//
// Invariants:
//   - at most one line per product id
//   - every line has Quantity >= 1; Decrement floors at 1 and only Remove
//     deletes a line
//
// The cart is in-memory. Persistence, when enabled, is the engine's job;
// Restore rebuilds a cart from a persisted snapshot.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/shopstate/internal/model"
	"github.com/roach88/shopstate/internal/notify"
)

// Store is the cart. It has a single writer; readers subscribe for change
// notifications. Not safe for concurrent mutation.
type Store struct {
	lines []model.CartLine
	hub   notify.Hub[[]model.CartLine]
}

// New returns an empty cart.
func New() *Store {
	return &Store{}
}

// Add puts quantity units of p in the cart. A repeat add of the same product
// id increments the existing line; the stored product value is kept.
// Returns model.ErrInvalidArgument if quantity < 1.
func (s *Store) Add(p model.Product, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity %d for product %q must be >= 1", model.ErrInvalidArgument, quantity, p.ID)
	}
	if i := s.index(p.ID); i >= 0 {
		s.lines[i].Quantity += quantity
	} else {
		s.lines = append(s.lines, model.CartLine{Product: p, Quantity: quantity})
	}
	s.changed()
	return nil
}

// Remove deletes the line for id. Reports whether a line was removed.
func (s *Store) Remove(id model.ProductID) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.changed()
	return true
}

// Increment adds one unit to the line for id. No-op if absent.
func (s *Store) Increment(id model.ProductID) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.lines[i].Quantity++
	s.changed()
	return true
}

// Decrement removes one unit from the line for id. A line at quantity 1
// stays at 1. Reports whether the quantity changed.
func (s *Store) Decrement(id model.ProductID) bool {
	i := s.index(id)
	if i < 0 || s.lines[i].Quantity <= 1 {
		return false
	}
	s.lines[i].Quantity--
	s.changed()
	return true
}

// Clear empties the cart. Reports whether anything was removed.
func (s *Store) Clear() bool {
	if len(s.lines) == 0 {
		return false
	}
	s.lines = nil
	s.changed()
	return true
}

// Lines returns a copy of the lines in insertion order.
func (s *Store) Lines() []model.CartLine {
	out := make([]model.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line returns the line for id.
func (s *Store) Line(id model.ProductID) (model.CartLine, bool) {
	if i := s.index(id); i >= 0 {
		return s.lines[i], true
	}
	return model.CartLine{}, false
}

// Len returns the number of distinct lines.
func (s *Store) Len() int {
	return len(s.lines)
}

// Quantity returns the number of units across all lines.
func (s *Store) Quantity() int {
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Total returns the sum of unit price × quantity over the current lines.
// Computed on every call.
func (s *Store) Total() model.Money {
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Restore replaces the cart contents with lines, typically from a persisted
// snapshot. Duplicate product ids are merged and lines with quantity < 1 are
// dropped so the cart invariants hold regardless of input. Subscribers are
// not notified.
func (s *Store) Restore(lines []model.CartLine) {
	s.lines = nil
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if i := s.index(l.Product.ID); i >= 0 {
			s.lines[i].Quantity += l.Quantity
			continue
		}
		s.lines = append(s.lines, l)
	}
}

// Subscribe registers fn to receive a snapshot of the lines after every
// mutation.
func (s *Store) Subscribe(fn func([]model.CartLine)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

func (s *Store) index(id model.ProductID) int {
	for i, l := range s.lines {
		if l.Product.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) changed() {
	s.hub.Publish(s.Lines())
}
