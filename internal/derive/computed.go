package derive

import (
	"sync"

	"github.com/roach88/hafiza/internal/state"
)

// Computed is a derived value that records the paths it reads.
//
// Thread-safety: Eval may be called concurrently; the dependency set is
// whatever the most recently finished evaluation recorded.
type Computed[R any] struct {
	name string
	fn   func(Cursor) R

	mu   sync.RWMutex
	deps []string
}

// NewComputed wraps fn. The name is only used in logs and traces.
func NewComputed[R any](name string, fn func(Cursor) R) *Computed[R] {
	return &Computed[R]{name: name, fn: fn}
}

// Name returns the label given at construction.
func (c *Computed[R]) Name() string { return c.name }

// Kind implements Projection.
func (c *Computed[R]) Kind() Kind { return KindComputed }

// Eval runs the computation against root and replaces the dependency set
// with the paths read during this run. The set is replaced even when fn
// panics; the panic then propagates to the caller.
func (c *Computed[R]) Eval(root *state.Object) R {
	var node state.Value
	if root != nil {
		node = root
	}
	return c.run(node, nil, nil)
}

// Read evaluates c nested inside another computation. Paths are recorded
// relative to cur in c's own dependency set, and mirrored into the
// enclosing evaluation under cur's path.
//
// The dependency set belongs to c, not to any store: after a Read it holds
// cur-relative paths until the next evaluation. store.Select keeps its own
// copy per cached result, so this only matters to callers of Dependencies.
func (c *Computed[R]) Read(cur Cursor) R {
	return c.run(cur.node, cur.frame, cur.path)
}

func (c *Computed[R]) run(node state.Value, parent *frame, prefix []string) R {
	f := newFrame(parent, prefix)
	defer func() { c.setDependencies(f.paths()) }()
	return c.fn(Cursor{frame: f, node: node, found: node != nil})
}

func (c *Computed[R]) setDependencies(deps []string) {
	c.mu.Lock()
	c.deps = deps
	c.mu.Unlock()
}

// Dependencies returns the paths read by the last evaluation, in first-read
// order. Empty before the first evaluation.
func (c *Computed[R]) Dependencies() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.deps))
	copy(out, c.deps)
	return out
}
