package events

import "errors"

var (
	// ErrUnknownKind indicates a payload tagged with a kind that has no registered type.
	ErrUnknownKind = errors.New("events: unknown event kind")

	// ErrSinkClosed indicates Emit was called after Close.
	ErrSinkClosed = errors.New("events: sink closed")
)
