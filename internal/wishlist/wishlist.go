// Package wishlist implements the session wishlist: a set of saved products
// keyed by product id, displayed in insertion order.
package wishlist

import (
	"github.com/roach88/shopstate/internal/model"
	"github.com/roach88/shopstate/internal/notify"
)

// Store is the wishlist. Single writer; not safe for concurrent mutation.
type Store struct {
	items []model.Product
	hub   notify.Hub[[]model.Product]
}

// New returns an empty wishlist.
func New() *Store {
	return &Store{}
}

// Add saves p unless a product with the same id is already present.
// Reports whether p was added.
func (s *Store) Add(p model.Product) bool {
	if s.index(p.ID) >= 0 {
		return false
	}
	s.items = append(s.items, p)
	s.changed()
	return true
}

// Remove deletes the entry for id. Reports whether an entry was removed.
func (s *Store) Remove(id model.ProductID) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.changed()
	return true
}

// Toggle adds p if absent and removes it if present. Reports whether p is
// in the wishlist afterwards.
func (s *Store) Toggle(p model.Product) bool {
	if s.Remove(p.ID) {
		return false
	}
	s.Add(p)
	return true
}

// Contains reports whether id is saved.
func (s *Store) Contains(id model.ProductID) bool {
	return s.index(id) >= 0
}

// Items returns a copy of the saved products in insertion order.
func (s *Store) Items() []model.Product {
	out := make([]model.Product, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of saved products.
func (s *Store) Len() int {
	return len(s.items)
}

// Restore replaces the contents with items, keeping the first occurrence of
// each id. Subscribers are not notified.
func (s *Store) Restore(items []model.Product) {
	s.items = nil
	for _, p := range items {
		if s.index(p.ID) < 0 {
			s.items = append(s.items, p)
		}
	}
}

// Subscribe registers fn to receive a snapshot after every mutation.
func (s *Store) Subscribe(fn func([]model.Product)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

func (s *Store) index(id model.ProductID) int {
	for i, p := range s.items {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) changed() {
	s.hub.Publish(s.Items())
}
