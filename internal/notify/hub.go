// Package notify provides the subscription mechanism stores use to tell
// readers that their state changed.
//
// A Hub holds listeners and calls them synchronously, in subscription order,
// after each mutation. Listeners receive a snapshot value, never a reference
// to store-owned state.
package notify

import "sync"

// Hub fans a value out to subscribed listeners.
// The zero value is ready to use.
type Hub[T any] struct {
	mu        sync.Mutex
	nextID    int
	listeners []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that unregisters it.
// Calling the returned function more than once is harmless.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.listeners = append(h.listeners, listener[T]{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, l := range h.listeners {
			if l.id == id {
				h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every listener with v. The listener list is copied first so
// a listener may unsubscribe itself.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	ls := make([]listener[T], len(h.listeners))
	copy(ls, h.listeners)
	h.mu.Unlock()

	for _, l := range ls {
		l.fn(v)
	}
}

// Len returns the number of active listeners.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
