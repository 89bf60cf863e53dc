// Package history implements the time-travel log: a bounded, cursor-based
// record of (state, action, timestamp) entries.
//
// The log is a ring buffer that grows on demand up to its capacity, so a
// large capacity costs nothing until it is used. Pushing while the cursor is not at the newest
// entry discards the redo branch first; pushing into a full log evicts the
// oldest entry. Snapshots are stored by reference, so with persistent state
// values unchanged subtrees are shared between entries instead of copied.
package history

import (
	"sync"
	"time"

	"github.com/roach88/hafiza/internal/action"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 50

// Entry is one recorded transition.
type Entry[S any] struct {
	// Seq orders entries across the lifetime of the log.
	Seq int64

	State     S
	Action    action.Action
	Timestamp time.Time
}

// Option configures a Log.
type Option func(*options)

type options struct {
	now   func() time.Time
	clock *Clock
}

// WithNow sets the timestamp source. Defaults to time.Now.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithClock sets the logical clock used for Seq.
func WithClock(c *Clock) Option {
	return func(o *options) { o.clock = c }
}

// Log is a bounded time-travel log.
//
// Invariants: 0 <= Len() <= Cap(); cursor is -1 iff the log is empty,
// otherwise 0 <= cursor < Len().
//
// Thread-safety: all methods are safe for concurrent use.
type Log[S any] struct {
	mu     sync.Mutex
	buf    []Entry[S]
	size   int // capacity; buf grows until len(buf) == size
	start  int // physical index of the oldest entry, 0 until buf is full
	n      int
	cursor int // logical index, -1 when empty

	now   func() time.Time
	clock *Clock
}

// New creates an empty log holding at most capacity entries.
func New[S any](capacity int, opts ...Option) *Log[S] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = NewClock()
	}
	return &Log[S]{
		size:   capacity,
		cursor: -1,
		now:    o.now,
		clock:  o.clock,
	}
}

// Push records a transition and moves the cursor to it.
func (l *Log[S]) Push(s S, a action.Action) Entry[S] {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Drop the redo branch.
	if l.cursor < l.n-1 {
		for i := l.cursor + 1; i < l.n; i++ {
			l.buf[l.phys(i)] = Entry[S]{}
		}
		l.n = l.cursor + 1
	}

	e := Entry[S]{Seq: l.clock.Next(), State: s, Action: a, Timestamp: l.now()}
	switch {
	case l.n < len(l.buf):
		l.buf[l.phys(l.n)] = e
	case len(l.buf) < l.size:
		l.buf = append(l.buf, e)
	default:
		// Full: overwrite the oldest slot.
		l.buf[l.start] = e
		l.start = (l.start + 1) % len(l.buf)
		l.n--
	}
	l.n++
	l.cursor = l.n - 1
	return e
}

// JumpToIndex moves the cursor to i and returns the state there. Out of
// range indexes return false and leave the log untouched.
func (l *Log[S]) JumpToIndex(i int) (S, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jump(i)
}

// JumpToPast moves the cursor n entries back.
func (l *Log[S]) JumpToPast(n int) (S, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jump(l.cursor - n)
}

// JumpToFuture moves the cursor n entries forward.
func (l *Log[S]) JumpToFuture(n int) (S, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jump(l.cursor + n)
}

func (l *Log[S]) jump(i int) (S, bool) {
	if i < 0 || i >= l.n {
		var zero S
		return zero, false
	}
	l.cursor = i
	return l.buf[l.phys(i)].State, true
}

// CanUndo reports whether there is an entry before the cursor.
func (l *Log[S]) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor > 0
}

// CanRedo reports whether there is an entry after the cursor.
func (l *Log[S]) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor < l.n-1
}

// Clear empties the log. Seq numbering continues.
func (l *Log[S]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = nil
	l.start, l.n, l.cursor = 0, 0, -1
}

// Current returns the entry under the cursor.
func (l *Log[S]) Current() (Entry[S], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cursor < 0 {
		return Entry[S]{}, false
	}
	return l.buf[l.phys(l.cursor)], true
}

// At returns the entry at logical index i without moving the cursor.
func (l *Log[S]) At(i int) (Entry[S], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= l.n {
		return Entry[S]{}, false
	}
	return l.buf[l.phys(i)], true
}

// CurrentIndex returns the cursor, -1 when empty.
func (l *Log[S]) CurrentIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}

// Entries returns a copy of all entries, oldest first.
func (l *Log[S]) Entries() []Entry[S] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry[S], l.n)
	for i := range out {
		out[i] = l.buf[l.phys(i)]
	}
	return out
}

// Len returns the number of entries.
func (l *Log[S]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

// Cap returns the maximum number of entries.
func (l *Log[S]) Cap() int {
	return l.size
}

func (l *Log[S]) phys(i int) int {
	return (l.start + i) % len(l.buf)
}
