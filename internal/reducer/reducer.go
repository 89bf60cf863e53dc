// Package reducer provides reducer building blocks: kind-keyed dispatch
// tables and a generic path-patching reducer used by scenarios and the CLI.
package reducer

import (
	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/state"
)

// Map routes actions to a reducer by kind. Unknown kinds leave the state
// unchanged, so a Map is always total.
type Map map[string]action.Reducer

// Reduce implements action.Reducer.
func (m Map) Reduce(prev *state.Object, a action.Action) *state.Object {
	if r, ok := m[a.Kind]; ok && r != nil {
		return r(prev, a)
	}
	return prev
}

// Combine runs reducers in order, feeding each one the previous result.
func Combine(reducers ...action.Reducer) action.Reducer {
	return func(prev *state.Object, a action.Action) *state.Object {
		next := prev
		for _, r := range reducers {
			next = r(next, a)
		}
		return next
	}
}
