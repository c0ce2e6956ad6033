package store

import "errors"

var (
	// ErrNilRecord indicates a nil record was passed to Put.
	ErrNilRecord = errors.New("store: nil record")

	// ErrCorrupt indicates a stored value cannot be decoded.
	ErrCorrupt = errors.New("store: corrupt value")
)
