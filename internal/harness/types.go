package harness

import (
	"github.com/roach88/hafiza/internal/history"
	"github.com/roach88/hafiza/internal/state"
)

// TraceEvent is one pass of an action through the dispatch pipeline.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	ID   string `json:"id"`
	Kind string `json:"kind"`

	// Payload is the resolved payload; nil for rejected payloads.
	Payload state.Value `json:"payload,omitempty"`

	// State is the snapshot after the dispatch; nil when it failed.
	State *state.Object `json:"state,omitempty"`

	// Error is the dispatch error message, if any.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the dispatch was aborted.
func (e TraceEvent) Failed() bool {
	return e.Error != ""
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Trace has one event per dispatch, in commit order.
	Trace []TraceEvent `json:"trace"`

	// Final is the store snapshot after all steps.
	Final *state.Object `json:"final"`

	// History holds the store history entries (nil when disabled) and
	// Cursor the current entry.
	History []history.Entry[*state.Object] `json:"-"`
	Cursor  int                            `json:"-"`

	// Failures describes every unmet expectation.
	Failures []string `json:"failures,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Failures: []string{},
		Cursor:   -1,
	}
}

// AddFailure records an unmet expectation and marks the result as failed.
func (r *Result) AddFailure(msg string) {
	r.Failures = append(r.Failures, msg)
	r.Pass = false
}
