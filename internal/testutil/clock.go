package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a resettable logical clock for tests.
//
// It mirrors engine.Clock (Next/Current) so journal seq values are
// identical across runs of the same scenario.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock starting at 0.
// The first call to Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// AdvanceTo moves the clock forward to seq. It never moves backwards.
func (c *DeterministicClock) AdvanceTo(seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq > c.seq {
		c.seq = seq
	}
}

// Reset sets the clock back to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// Epoch is the wall time FixedTime starts from.
var Epoch = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// FixedTime is a wall-clock source that advances by a fixed step on every
// call, so order timestamps are reproducible.
type FixedTime struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewFixedTime returns a source whose first reading is start. A zero step
// returns start forever.
func NewFixedTime(start time.Time, step time.Duration) *FixedTime {
	return &FixedTime{next: start, step: step}
}

// Now returns the current reading and advances by step.
// Its method value fits ledger.WithNow.
func (f *FixedTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.next
	f.next = f.next.Add(f.step)
	return t
}
