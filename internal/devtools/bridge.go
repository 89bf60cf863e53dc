// Package devtools connects a store to an external debugger.
//
// The debugger is reached through the Extension and Connection interfaces
// only; nothing in the store depends on one being present. Inbound
// time-travel requests are served from a history log kept by the
// middleware and applied with action.KindReplaceState.
package devtools

import (
	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/state"
)

// Default option values.
const (
	DefaultName   = "Hafiza Store"
	DefaultMaxAge = 50
)

// Options configure a debugger connection.
type Options struct {
	Name   string `json:"name" toml:"name"`
	MaxAge int    `json:"maxAge" toml:"max_age"`
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}
	return o
}

// Extension opens debugger connections.
type Extension interface {
	Connect(opts Options) (Connection, error)
}

// Connection is one debugger session.
type Connection interface {
	// Init announces the starting state.
	Init(s *state.Object)

	// Send reports a committed action, with its payload resolved, and the
	// state it produced.
	Send(a action.Action, s *state.Object)

	// Subscribe registers a handler for inbound messages.
	Subscribe(listener func(Message)) (unsubscribe func())
}

// Inbound message and command types.
const (
	MessageDispatch = "DISPATCH"

	CommandJumpToState  = "JUMP_TO_STATE"
	CommandJumpToAction = "JUMP_TO_ACTION"
	CommandReset        = "RESET"
	CommandRollback     = "ROLLBACK"
	CommandCommit       = "COMMIT"
)

// Message is an inbound request from the debugger.
type Message struct {
	Type    string  `json:"type"`
	Payload Command `json:"payload"`

	// State carries a JSON snapshot (ROLLBACK only).
	State string `json:"state,omitempty"`
}

// Command is the body of a DISPATCH message.
type Command struct {
	Type string `json:"type"`

	// Index is the history index for JUMP_TO_STATE.
	Index int `json:"index,omitempty"`

	// ActionID is the history index for JUMP_TO_ACTION.
	ActionID int `json:"actionId,omitempty"`
}
