package derive

import "github.com/roach88/hafiza/internal/state"

// ShouldRecompute reports whether any recorded dependency of p resolves
// differently in prev and next. A projection with no recorded
// dependencies never needs recomputing.
func ShouldRecompute(p Tracked, prev, next *state.Object) bool {
	return Changed(p.Dependencies(), prev, next)
}

// Changed applies the change rule to every path in deps.
func Changed(deps []string, prev, next *state.Object) bool {
	if prev == next {
		return false
	}
	var a, b state.Value
	if prev != nil {
		a = prev
	}
	if next != nil {
		b = next
	}
	for _, dep := range deps {
		path := state.ParsePath(dep)
		av, aok := state.Lookup(a, path)
		bv, bok := state.Lookup(b, path)
		if valueChanged(av, bv, aok, bok) {
			return true
		}
	}
	return false
}

func valueChanged(a, b state.Value, aok, bok bool) bool {
	switch {
	case !aok && !bok:
		return false
	case aok != bok:
		return true
	default:
		return differs(a, b)
	}
}

// differs: scalars by value, arrays element-wise, objects by identity.
func differs(a, b state.Value) bool {
	switch av := a.(type) {
	case state.Array:
		bv, ok := b.(state.Array)
		if !ok || len(av) != len(bv) {
			return true
		}
		for i := range av {
			if differs(av[i], bv[i]) {
				return true
			}
		}
		return false
	case *state.Object:
		bv, ok := b.(*state.Object)
		return !ok || av != bv
	default:
		return a != b
	}
}
