package sharevault

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrLessThanMinDeposit indicates a deposit below the configured minimum.
	ErrLessThanMinDeposit = errors.New("sharevault: deposit below minimum")

	// ErrExceededMaxDeposit indicates a deposit would push total assets over the ceiling.
	ErrExceededMaxDeposit = errors.New("sharevault: deposit exceeds maximum total assets")

	// ErrExceededMaxMint indicates a mint larger than the ceiling allows.
	ErrExceededMaxMint = errors.New("sharevault: mint exceeds maximum")

	// ErrExceededMaxWithdraw indicates a withdrawal larger than the owner's position.
	ErrExceededMaxWithdraw = errors.New("sharevault: withdraw exceeds maximum")

	// ErrExceededMaxRedeem indicates a redemption of more shares than the owner holds.
	ErrExceededMaxRedeem = errors.New("sharevault: redeem exceeds maximum")

	// ErrInvalidFeeBasisPoints indicates a fee above 100%.
	ErrInvalidFeeBasisPoints = errors.New("sharevault: fee basis points exceed 10000")

	// ErrZeroAddress indicates an address parameter is zero.
	ErrZeroAddress = errors.New("sharevault: zero address")

	// ErrZeroShares indicates an operation would mint or burn no shares.
	ErrZeroShares = errors.New("sharevault: zero shares")

	// ErrInsufficientLiquidity indicates idle assets cannot cover a withdrawal
	// and no dispatcher is set to pull from.
	ErrInsufficientLiquidity = errors.New("sharevault: insufficient liquidity")

	// ErrSmoothingDisabled indicates a rewards cycle operation while the cycle length is zero.
	ErrSmoothingDisabled = errors.New("sharevault: rewards smoothing disabled")

	// ErrCycleNotEnded indicates a settle before the current cycle's end.
	ErrCycleNotEnded = errors.New("sharevault: rewards cycle not ended")

	// ErrInvalidCycleLength indicates a cycle length that is not a whole number of seconds.
	ErrInvalidCycleLength = errors.New("sharevault: invalid rewards cycle length")
)

// LessThanMinDepositError carries the rejected amount and the minimum.
type LessThanMinDepositError struct {
	Assets sdkmath.Uint
	Min    sdkmath.Uint
}

func (e *LessThanMinDepositError) Error() string {
	return fmt.Sprintf("sharevault: deposit of %s below minimum %s", e.Assets, e.Min)
}

// Is matches ErrLessThanMinDeposit.
func (e *LessThanMinDepositError) Is(target error) bool { return target == ErrLessThanMinDeposit }

// ExceededMaxDepositError carries the rejected amount and what was still allowed.
type ExceededMaxDepositError struct {
	Receiver common.Address
	Assets   sdkmath.Uint
	Max      sdkmath.Uint
}

func (e *ExceededMaxDepositError) Error() string {
	return fmt.Sprintf("sharevault: deposit of %s for %s exceeds max %s", e.Assets, e.Receiver.Hex(), e.Max)
}

// Is matches ErrExceededMaxDeposit.
func (e *ExceededMaxDepositError) Is(target error) bool { return target == ErrExceededMaxDeposit }
