package history

import "sync/atomic"

// Clock is a monotonic logical clock for history entries.
//
// Every pushed entry is stamped with a strictly increasing Seq, so entries
// stay totally ordered even when wall-clock timestamps tie or go backwards.
// Seq numbers are never reused, not even after Clear or redo-branch pruning.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
