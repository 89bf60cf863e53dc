package store

import (
	"reflect"

	"github.com/roach88/hafiza/internal/derive"
	"github.com/roach88/hafiza/internal/state"
)

// cacheEntry is a projection result and the snapshot it was computed from.
// deps is the dependency set of that evaluation, captured so that
// evaluations of the same computed elsewhere cannot change it.
type cacheEntry struct {
	value any
	state *state.Object
	deps  []string
}

// Select evaluates p against the current snapshot, serving cached results
// where the projection's kind allows it.
//
// Projections are cached by identity, so they should be pointers created
// once (derive.NewSelector, derive.NewComputed) and reused. Non-comparable
// projections are evaluated every time.
func Select[R any](s *Store, p derive.Projection[R]) R {
	cur := s.State()
	if !reflect.TypeOf(p).Comparable() {
		return p.Eval(cur)
	}

	switch p.Kind() {
	case derive.KindComputed:
		tracked, ok := p.(derive.Tracked)
		if !ok {
			return p.Eval(cur)
		}
		if e, ok := s.cached(s.computed, p); ok && !derive.Changed(e.deps, e.state, cur) {
			v, _ := e.value.(R)
			return v
		}
		v := p.Eval(cur)
		s.remember(s.computed, p, cacheEntry{value: v, state: cur, deps: tracked.Dependencies()})
		return v

	default:
		if e, ok := s.cached(s.selectors, p); ok && e.state == cur {
			v, _ := e.value.(R)
			return v
		}
		v := p.Eval(cur)
		s.remember(s.selectors, p, cacheEntry{value: v, state: cur})
		return v
	}
}

func (s *Store) cached(m map[any]cacheEntry, key any) (cacheEntry, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	e, ok := m[key]
	return e, ok
}

func (s *Store) remember(m map[any]cacheEntry, key any, e cacheEntry) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	m[key] = e
}

// resetSelectors drops every selector entry. Computed entries survive and
// are checked lazily on their next Select.
func (s *Store) resetSelectors() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	clear(s.selectors)
}
