package intake

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// RevealInfo is the data a depositor reveals alongside the funding
// transaction so the bridge can reconstruct the deposit script.
type RevealInfo struct {
	FundingOutputIndex uint32
	BlindingFactor     [8]byte
	WalletPubKeyHash   [20]byte
	RefundPubKeyHash   [20]byte
	RefundLocktime     [4]byte
	Vault              common.Address
}

// Bridge is the bridging collaborator that proves Bitcoin deposits and mints
// the bridged token to the intake account.
type Bridge interface {
	RevealFunding(ctx context.Context, fundingTx []byte, reveal RevealInfo, extraData [ExtraDataSize]byte) error
	IsFinalized(ctx context.Context, key FundingKey) (bool, error)
	// BridgedAmountFor returns the amount minted for key net of bridge fees.
	BridgedAmountFor(ctx context.Context, key FundingKey) (sdkmath.Uint, error)
	ExtraDataFor(ctx context.Context, key FundingKey) ([ExtraDataSize]byte, error)
}
