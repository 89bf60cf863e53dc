// Package action defines the dispatch vocabulary shared by every hafiza
// component: actions, reducers, deferred payloads and dispatch futures.
//
// This package contains types only, plus the two settle-once primitives
// (Promise and Future). It imports nothing internal except state.
package action

import (
	"github.com/roach88/hafiza/internal/state"
)

// Reserved action kinds. Application reducers never see these.
const (
	// KindInit labels the first history entry, recorded for the initial state.
	KindInit = "@@hafiza/INIT"

	// KindReplaceState replaces the snapshot with the *state.Object carried in
	// the payload, bypassing the reducer. Used by time travel.
	KindReplaceState = "@@hafiza/REPLACE_STATE"
)

// Action is a request to transition the store.
//
// Payload may be any value. When it implements Pending, the store awaits it
// and substitutes the resolved value before the reducer runs.
type Action struct {
	// ID correlates the action across middleware, devtools and traces.
	// The store stamps an ID when empty.
	ID string `json:"id,omitempty"`

	// Kind selects the reducer branch.
	Kind string `json:"kind"`

	// Payload is the optional argument.
	Payload any `json:"payload,omitempty"`
}

// New creates an action with an optional payload.
func New(kind string, payload ...any) Action {
	a := Action{Kind: kind}
	if len(payload) > 0 {
		a.Payload = payload[0]
	}
	return a
}

// ReplaceState builds the reserved action that swaps in next directly.
func ReplaceState(next *state.Object) Action {
	return Action{Kind: KindReplaceState, Payload: next}
}

// IsReserved reports whether the action uses a reserved kind.
func (a Action) IsReserved() bool {
	return a.Kind == KindInit || a.Kind == KindReplaceState
}

// IsPending reports whether the payload still has to be awaited.
func (a Action) IsPending() bool {
	_, ok := a.Payload.(Pending)
	return ok
}

// Reducer is a pure, total transition function. It must return a defined
// snapshot for every action, and the previous snapshot for kinds it does
// not recognise.
type Reducer func(prev *state.Object, a Action) *state.Object

// Identity is the reducer that never changes state.
func Identity(prev *state.Object, _ Action) *state.Object {
	return prev
}
