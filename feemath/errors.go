package feemath

import "errors"

var (
	// ErrMathOverflow indicates an intermediate or final result does not fit in 256 bits.
	ErrMathOverflow = errors.New("feemath: result overflows 256 bits")

	// ErrDivisionByZero indicates a zero denominator.
	ErrDivisionByZero = errors.New("feemath: division by zero")

	// ErrNegativeAmount indicates a parsed amount is below zero.
	ErrNegativeAmount = errors.New("feemath: negative amount")
)
