package sharevault

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/feemath"
)

// TotalAssets returns the assets backing all shares: idle plus dispatched
// assets, or the smoothed figure when a rewards cycle is active.
func (v *Vault) TotalAssets() sdkmath.Uint {
	if v.rewards.enabled() {
		return v.rewards.total(v.journal.Now())
	}
	return v.liveAssets()
}

// TotalSupply returns the outstanding shares.
func (v *Vault) TotalSupply() sdkmath.Uint { return v.shares.TotalSupply() }

// BalanceOf returns the shares held by owner.
func (v *Vault) BalanceOf(owner common.Address) sdkmath.Uint { return v.shares.BalanceOf(owner) }

// AssetsBalanceOf returns the assets owner's shares convert to, before exit fees.
func (v *Vault) AssetsBalanceOf(owner common.Address) (sdkmath.Uint, error) {
	return v.ConvertToAssets(v.shares.BalanceOf(owner))
}

// ConvertToShares converts assets to shares, rounding down.
func (v *Vault) ConvertToShares(assets sdkmath.Uint) (sdkmath.Uint, error) {
	return v.toShares(assets, feemath.Floor)
}

// ConvertToAssets converts shares to assets, rounding down.
func (v *Vault) ConvertToAssets(shares sdkmath.Uint) (sdkmath.Uint, error) {
	return v.toAssets(shares, feemath.Floor)
}

func (v *Vault) toShares(assets sdkmath.Uint, r feemath.Rounding) (sdkmath.Uint, error) {
	return feemath.ConvertToShares(assets, v.shares.TotalSupply(), v.TotalAssets(), r)
}

func (v *Vault) toAssets(shares sdkmath.Uint, r feemath.Rounding) (sdkmath.Uint, error) {
	return feemath.ConvertToAssets(shares, v.shares.TotalSupply(), v.TotalAssets(), r)
}

// PreviewDeposit returns the shares a deposit of assets mints after the entry fee.
func (v *Vault) PreviewDeposit(assets sdkmath.Uint) (sdkmath.Uint, error) {
	fee := feemath.FeeOnTotal(assets, v.params.EntryFeeBasisPoints)
	return v.toShares(assets.Sub(fee), feemath.Floor)
}

// PreviewMint returns the assets, entry fee included, needed to mint shares.
func (v *Vault) PreviewMint(shares sdkmath.Uint) (sdkmath.Uint, error) {
	raw, err := v.toAssets(shares, feemath.Ceil)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	return feemath.CheckedAdd(raw, feemath.FeeOnRaw(raw, v.params.EntryFeeBasisPoints))
}

// PreviewWithdraw returns the shares burned to withdraw assets net of the exit fee.
func (v *Vault) PreviewWithdraw(assets sdkmath.Uint) (sdkmath.Uint, error) {
	gross, err := feemath.CheckedAdd(assets, feemath.FeeOnRaw(assets, v.params.ExitFeeBasisPoints))
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	return v.toShares(gross, feemath.Ceil)
}

// PreviewRedeem returns the assets, exit fee deducted, paid for shares.
func (v *Vault) PreviewRedeem(shares sdkmath.Uint) (sdkmath.Uint, error) {
	raw, err := v.toAssets(shares, feemath.Floor)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	return raw.Sub(feemath.FeeOnTotal(raw, v.params.ExitFeeBasisPoints)), nil
}

// remainingCapacity returns how many more net assets the ceiling admits and
// whether a ceiling is set at all.
func (v *Vault) remainingCapacity() (sdkmath.Uint, bool) {
	ceiling := v.params.MaximumTotalAssets
	if feemath.IsMax(ceiling) {
		return feemath.MaxUint256, false
	}
	return feemath.SaturatingSub(ceiling, v.TotalAssets()), true
}

// MaxDeposit returns the largest deposit, entry fee included, the ceiling admits.
func (v *Vault) MaxDeposit(common.Address) sdkmath.Uint {
	remaining, capped := v.remainingCapacity()
	if !capped {
		return feemath.MaxUint256
	}
	withFee, err := feemath.CheckedAdd(remaining, feemath.FeeOnRaw(remaining, v.params.EntryFeeBasisPoints))
	if err != nil {
		return feemath.MaxUint256
	}
	return withFee
}

// MaxMint returns the largest mint the ceiling admits.
func (v *Vault) MaxMint(common.Address) sdkmath.Uint {
	remaining, capped := v.remainingCapacity()
	if !capped {
		return feemath.MaxUint256
	}
	shares, err := v.toShares(remaining, feemath.Floor)
	if err != nil {
		return feemath.MaxUint256
	}
	return shares
}

// MaxWithdraw returns the net assets owner can withdraw.
func (v *Vault) MaxWithdraw(owner common.Address) (sdkmath.Uint, error) {
	return v.PreviewRedeem(v.shares.BalanceOf(owner))
}

// MaxRedeem returns the shares owner can redeem.
func (v *Vault) MaxRedeem(owner common.Address) sdkmath.Uint {
	return v.shares.BalanceOf(owner)
}
