package derive

import (
	"sync"

	"github.com/roach88/hafiza/internal/state"
)

// Selector memoizes fn on the identity of the last snapshot it saw.
type Selector[R any] struct {
	fn func(*state.Object) R

	mu     sync.Mutex
	primed bool
	last   *state.Object
	result R
}

// NewSelector wraps fn. fn must be pure.
func NewSelector[R any](fn func(*state.Object) R) *Selector[R] {
	return &Selector[R]{fn: fn}
}

// Kind implements Projection.
func (s *Selector[R]) Kind() Kind { return KindSelector }

// Eval returns the cached result when root is the same snapshot as last
// time, otherwise calls fn and caches the answer.
func (s *Selector[R]) Eval(root *state.Object) R {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.primed && s.last == root {
		return s.result
	}
	r := s.fn(root)
	s.primed, s.last, s.result = true, root, r
	return r
}
