package allocator

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

var (
	// ErrCallerNotVault indicates a withdrawal requested by anyone but the vault.
	ErrCallerNotVault = errors.New("allocator: caller is not the vault")

	// ErrWithdrawalAmountExceedsDepositBalance indicates a withdrawal larger
	// than local surplus plus tracked principal.
	ErrWithdrawalAmountExceedsDepositBalance = errors.New("allocator: withdrawal amount exceeds deposit balance")

	// ErrNonMonotonicDepositID indicates the custodian returned a deposit id
	// that does not exceed the previous one.
	ErrNonMonotonicDepositID = errors.New("allocator: custodian deposit id not increasing")

	// ErrCustodianShortfall indicates the custodian returned less than the
	// tracked principal of a closed position.
	ErrCustodianShortfall = errors.New("allocator: custodian returned less than tracked principal")

	// ErrZeroAddress indicates an address parameter is zero.
	ErrZeroAddress = errors.New("allocator: zero address")
)

// WithdrawalExceedsBalanceError carries the requested and available amounts.
type WithdrawalExceedsBalanceError struct {
	Requested sdkmath.Uint
	Available sdkmath.Uint
}

func (e *WithdrawalExceedsBalanceError) Error() string {
	return fmt.Sprintf("allocator: withdrawal of %s exceeds available %s", e.Requested, e.Available)
}

// Is matches ErrWithdrawalAmountExceedsDepositBalance.
func (e *WithdrawalExceedsBalanceError) Is(target error) bool {
	return target == ErrWithdrawalAmountExceedsDepositBalance
}
