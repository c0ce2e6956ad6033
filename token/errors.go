package token

import "errors"

var (
	// ErrInsufficientBalance indicates the sender holds less than the amount moved.
	ErrInsufficientBalance = errors.New("token: insufficient balance")

	// ErrInsufficientAllowance indicates the spender's allowance is below the amount moved.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")

	// ErrZeroAddress indicates a transfer, mint or approval involving the zero address.
	ErrZeroAddress = errors.New("token: zero address")

	// ErrSupplyOverflow indicates minting would push total supply past 256 bits.
	ErrSupplyOverflow = errors.New("token: total supply overflow")
)
