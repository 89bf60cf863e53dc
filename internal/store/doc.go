// Package store implements the state container: the canonical snapshot,
// the dispatch pipeline, subscriber fan-out and select routing.
//
// # Single writer
//
// All transitions run on one loop goroutine started by New. Dispatch only
// enqueues a job and returns an *action.Future, so it never blocks and may
// be called from anywhere, including reducers, middleware and subscribers.
// A dispatch issued from inside the pipeline is processed after the current
// one finishes; waiting on its future with the pipeline's context returns
// action.ErrReentrantWait instead of deadlocking.
//
// Per action the loop goes through:
//
//	resolve pending payload (only if the payload is action.Pending)
//	  -> reduce (exactly one reducer call)
//	  -> commit and reset the selector cache
//	  -> record history (when enabled)
//	  -> notify subscribers in subscription order
//
// A rejected payload, a reducer panic or a nil reducer result aborts the
// action with a *DispatchError and leaves state untouched.
//
// # Selection
//
// Select routes on the projection's Kind. Selectors are served from a cache
// that is discarded on every dispatch. Computed values keep their entry
// across dispatches, together with the dependency set of the evaluation that
// produced them, and are re-evaluated only when derive.Changed reports that
// one of those paths changed since the entry was captured.
package store
