package access

import "errors"

var (
	// ErrNotOwner indicates the caller is not the governance owner.
	ErrNotOwner = errors.New("access: caller is not the owner")

	// ErrMissingRole indicates the caller does not hold the required role.
	ErrMissingRole = errors.New("access: caller is missing role")

	// ErrZeroAddress indicates an owner or role member is the zero address.
	ErrZeroAddress = errors.New("access: zero address")

	// ErrAlreadyMember indicates the address already holds the role.
	ErrAlreadyMember = errors.New("access: address already holds role")

	// ErrNotMember indicates the address does not hold the role.
	ErrNotMember = errors.New("access: address does not hold role")
)
