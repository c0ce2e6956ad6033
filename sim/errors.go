package sim

import "errors"

var (
	// ErrAlreadyRevealed indicates the funding output was revealed before.
	ErrAlreadyRevealed = errors.New("sim: funding output already revealed")

	// ErrUnknownDeposit indicates no reveal exists for the funding key.
	ErrUnknownDeposit = errors.New("sim: unknown deposit")

	// ErrAlreadyFinalized indicates the bridge already minted for the deposit.
	ErrAlreadyFinalized = errors.New("sim: deposit already finalized")

	// ErrUnknownPosition indicates no custodial position exists for the id.
	ErrUnknownPosition = errors.New("sim: unknown position")

	// ErrPositionTooSmall indicates a partial withdrawal exceeds the position.
	ErrPositionTooSmall = errors.New("sim: position balance too small")

	// ErrUnsupportedAsset indicates the custodian was asked for another asset.
	ErrUnsupportedAsset = errors.New("sim: unsupported asset")
)
