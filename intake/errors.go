package intake

import (
	"errors"
	"fmt"
)

var (
	// ErrBeneficiaryIsZero indicates a deposit names no beneficiary.
	ErrBeneficiaryIsZero = errors.New("intake: beneficiary is zero")

	// ErrUnexpectedTbtcVault indicates the reveal targets a different custody vault.
	ErrUnexpectedTbtcVault = errors.New("intake: unexpected tbtc vault")

	// ErrAlreadyRevealed indicates the funding key has already been initialized.
	ErrAlreadyRevealed = errors.New("intake: deposit already revealed")

	// ErrUnexpectedState indicates a transition was attempted from the wrong state.
	ErrUnexpectedState = errors.New("intake: unexpected deposit state")

	// ErrCallerNotBeneficiary indicates the caller may not act on the deposit.
	ErrCallerNotBeneficiary = errors.New("intake: caller is not the beneficiary")

	// ErrBridgingNotCompleted indicates the bridge has not minted for the key yet.
	ErrBridgingNotCompleted = errors.New("intake: bridging not completed")

	// ErrDepositorFeeExceedsBridgedAmount indicates the fee would consume the whole deposit.
	ErrDepositorFeeExceedsBridgedAmount = errors.New("intake: depositor fee exceeds bridged amount")

	// ErrInvalidFundingTx indicates the funding transaction cannot be parsed.
	ErrInvalidFundingTx = errors.New("intake: invalid funding transaction")

	// ErrFundingOutputNotFound indicates the revealed output index is out of range.
	ErrFundingOutputNotFound = errors.New("intake: funding output not found")

	// ErrFeesExceedDeposit indicates bridge fees would consume the whole deposit.
	ErrFeesExceedDeposit = errors.New("intake: fees exceed deposit amount")

	// ErrRecordNotFound indicates no record exists for the funding key.
	ErrRecordNotFound = errors.New("intake: record not found")

	// ErrZeroAddress indicates an address parameter is zero.
	ErrZeroAddress = errors.New("intake: zero address")

	// ErrInvalidState indicates a state name that does not exist.
	ErrInvalidState = errors.New("intake: invalid state")
)

// UnexpectedStateError reports the state a deposit was in when an operation
// required a different one.
type UnexpectedStateError struct {
	Key      FundingKey
	Actual   State
	Expected State
}

func (e *UnexpectedStateError) Error() string {
	return fmt.Sprintf("intake: deposit %s is %s, expected %s", e.Key.Hex(), e.Actual, e.Expected)
}

// Is matches ErrUnexpectedState.
func (e *UnexpectedStateError) Is(target error) bool {
	return target == ErrUnexpectedState
}
