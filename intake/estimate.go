package intake

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// SatoshiMultiplier converts satoshis to the 18-decimal bridged token unit.
const SatoshiMultiplier = 10_000_000_000

// BridgeParams are the bridge-side fee parameters. They are only used to
// estimate what a deposit will yield; the bridge enforces them.
type BridgeParams struct {
	TreasuryFeeDivisor          uint64
	TxMaxFee                    uint64 // satoshis
	OptimisticMintingFeeDivisor uint64
}

// FeeBreakdown is the estimated split of a deposit, in token units.
type FeeBreakdown struct {
	TreasuryFee          sdkmath.Uint
	OptimisticMintingFee sdkmath.Uint
	TxMaxFee             sdkmath.Uint
	BridgedAmount        sdkmath.Uint
}

// TreasuryFeeSat returns the bridge treasury fee for a deposit, in satoshis.
func TreasuryFeeSat(depositSat uint64, p BridgeParams) uint64 {
	if p.TreasuryFeeDivisor == 0 {
		return 0
	}
	return depositSat / p.TreasuryFeeDivisor
}

// EstimateBridgedAmount reproduces the bridge's minting math: the deposit
// minus the treasury fee, scaled to token units, minus the optimistic
// minting fee and the maximum sweep transaction fee.
func EstimateBridgedAmount(depositSat, treasuryFeeSat uint64, p BridgeParams) (FeeBreakdown, error) {
	if treasuryFeeSat > depositSat {
		return FeeBreakdown{}, fmt.Errorf("%w: treasury fee %d sat, deposit %d sat", ErrFeesExceedDeposit, treasuryFeeSat, depositSat)
	}
	mult := sdkmath.NewUint(SatoshiMultiplier)
	subTreasury := sdkmath.NewUint(depositSat - treasuryFeeSat).Mul(mult)

	omFee := sdkmath.ZeroUint()
	if p.OptimisticMintingFeeDivisor > 0 {
		omFee = subTreasury.QuoUint64(p.OptimisticMintingFeeDivisor)
	}
	txFee := sdkmath.NewUint(p.TxMaxFee).Mul(mult)

	fees := omFee.Add(txFee)
	if fees.GT(subTreasury) {
		return FeeBreakdown{}, fmt.Errorf("%w: fees %s, amount %s", ErrFeesExceedDeposit, fees, subTreasury)
	}
	return FeeBreakdown{
		TreasuryFee:          sdkmath.NewUint(treasuryFeeSat).Mul(mult),
		OptimisticMintingFee: omFee,
		TxMaxFee:             txFee,
		BridgedAmount:        subTreasury.Sub(fees),
	}, nil
}

// DepositorFee returns the fee taken from a bridged amount: amount / divisor,
// or zero when the divisor is zero.
func DepositorFee(bridged sdkmath.Uint, divisor uint64) sdkmath.Uint {
	if divisor == 0 {
		return sdkmath.ZeroUint()
	}
	return bridged.QuoUint64(divisor)
}
