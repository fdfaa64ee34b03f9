package engine

import "sync/atomic"

// LogicalClock stamps commands with sequence numbers.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type LogicalClock interface {
	Next() int64
	Current() int64
}

var _ LogicalClock = (*Clock)(nil)

// Clock is the monotonic logical clock that stamps journal entries.
//
// Every executed command gets a strictly increasing seq, so the journal
// orders commands without relying on wall-clock time. On startup the clock
// resumes from the highest journaled seq.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// However, the Engine's single-writer design means only one goroutine
// typically calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// AdvanceTo moves the clock forward to seq. It never moves backwards.
func (c *Clock) AdvanceTo(seq int64) {
	for {
		cur := c.seq.Load()
		if seq <= cur || c.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}
