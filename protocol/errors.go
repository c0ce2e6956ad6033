package protocol

import "errors"

var (
	// ErrZeroAddress indicates a required role address is zero.
	ErrZeroAddress = errors.New("protocol: zero address")

	// ErrDuplicateAccount indicates two system accounts share an address.
	ErrDuplicateAccount = errors.New("protocol: duplicate system account")

	// ErrStaleDevnetState indicates the persisted stores hold state from an
	// earlier devnet run whose in-memory ledgers are gone.
	ErrStaleDevnetState = errors.New("protocol: stores hold state from a previous devnet run")
)
