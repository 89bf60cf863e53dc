// Package middleware composes action-intercepting wrappers around a store's
// dispatch pipeline.
//
// A Middleware receives the store API once, at store construction, and
// returns a wrapper over the next stage. Wrappers are nested onion style:
// the first unit in resolved order sees an action first on the way in and
// returns last on the way out.
package middleware

import (
	"context"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/state"
)

// API is the view of the store handed to middleware.
type API struct {
	GetState func() *state.Object
	Dispatch func(ctx context.Context, a action.Action) *action.Future
}

// Next is one stage of the dispatch pipeline.
type Next func(ctx context.Context, a action.Action) error

// Middleware wraps the next stage of the pipeline.
type Middleware func(api API) func(next Next) Next

// Chain applies mws around base. mws[0] is outermost.
func Chain(api API, base Next, mws ...Middleware) Next {
	next := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		next = mws[i](api)(next)
	}
	return next
}

// Unit is a named middleware registered with a Composer.
type Unit struct {
	// Name must be unique within a Composer.
	Name string

	// Priority orders unconstrained units; higher runs earlier.
	Priority int

	// Dependencies names units that must run before this one.
	Dependencies []string

	Middleware Middleware
}
