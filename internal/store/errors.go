package store

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by dispatches made after Close.
var ErrClosed = errors.New("store is closed")

// DispatchError reports a dispatch that was aborted before committing.
// State is never changed by an aborted dispatch.
type DispatchError struct {
	// Code identifies the error category.
	Code DispatchErrorCode

	// Kind and ID identify the aborted action.
	Kind string
	ID   string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// DispatchErrorCode categorizes dispatch failures.
type DispatchErrorCode string

const (
	// ErrCodePayloadRejected indicates a pending payload resolved to an error.
	ErrCodePayloadRejected DispatchErrorCode = "PAYLOAD_REJECTED"

	// ErrCodeReducerPanic indicates the reducer panicked.
	ErrCodeReducerPanic DispatchErrorCode = "REDUCER_PANIC"

	// ErrCodeNilState indicates the reducer returned a nil snapshot.
	ErrCodeNilState DispatchErrorCode = "NIL_STATE"

	// ErrCodeInvalidReplace indicates a REPLACE_STATE action without a snapshot.
	ErrCodeInvalidReplace DispatchErrorCode = "INVALID_REPLACE"

	// ErrCodeNoHistory indicates a time-travel request that cannot be served.
	ErrCodeNoHistory DispatchErrorCode = "NO_HISTORY"
)

// Error implements the error interface.
func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Kind != "" {
		msg = fmt.Sprintf("%s (kind=%s, id=%s)", msg, e.Kind, e.ID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// IsPayloadRejected returns true if err is a rejected-payload dispatch error.
// Uses errors.As to handle wrapped errors.
func IsPayloadRejected(err error) bool {
	return hasCode(err, ErrCodePayloadRejected)
}

// IsNoHistory returns true if err is a failed time-travel request.
func IsNoHistory(err error) bool {
	return hasCode(err, ErrCodeNoHistory)
}

func hasCode(err error, code DispatchErrorCode) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
