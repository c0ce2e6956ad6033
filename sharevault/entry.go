package sharevault

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/events"
	"github.com/bitfsorg/btcvault-go/feemath"
)

// Deposit pulls assets from caller, routes the entry fee to the treasury and
// mints shares to receiver. It returns the minted shares.
func (v *Vault) Deposit(ctx context.Context, caller common.Address, assets sdkmath.Uint, receiver common.Address) (sdkmath.Uint, error) {
	if receiver == (common.Address{}) {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: receiver", ErrZeroAddress)
	}
	if assets.LT(v.params.MinimumDepositAmount) {
		return sdkmath.ZeroUint(), &LessThanMinDepositError{Assets: assets, Min: v.params.MinimumDepositAmount}
	}
	if err := v.checkCeiling(receiver, assets); err != nil {
		return sdkmath.ZeroUint(), err
	}
	shares, err := v.PreviewDeposit(assets)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	if err := v.deposit(caller, receiver, assets, shares); err != nil {
		return sdkmath.ZeroUint(), err
	}
	return shares, nil
}

// Mint mints exactly shares to receiver, pulling the assets they cost plus
// the entry fee from caller. It returns the assets pulled.
func (v *Vault) Mint(ctx context.Context, caller common.Address, shares sdkmath.Uint, receiver common.Address) (sdkmath.Uint, error) {
	if receiver == (common.Address{}) {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: receiver", ErrZeroAddress)
	}
	if maxShares := v.MaxMint(receiver); shares.GT(maxShares) {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: %s shares, max %s", ErrExceededMaxMint, shares, maxShares)
	}
	assets, err := v.PreviewMint(shares)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	if assets.LT(v.params.MinimumDepositAmount) {
		return sdkmath.ZeroUint(), &LessThanMinDepositError{Assets: assets, Min: v.params.MinimumDepositAmount}
	}
	if err := v.deposit(caller, receiver, assets, shares); err != nil {
		return sdkmath.ZeroUint(), err
	}
	return assets, nil
}

// checkCeiling rejects a deposit whose net assets would lift total assets
// over the configured maximum.
func (v *Vault) checkCeiling(receiver common.Address, assets sdkmath.Uint) error {
	if feemath.IsMax(v.params.MaximumTotalAssets) {
		return nil
	}
	net := assets.Sub(feemath.FeeOnTotal(assets, v.params.EntryFeeBasisPoints))
	after, err := feemath.CheckedAdd(net, v.TotalAssets())
	if err != nil || after.GT(v.params.MaximumTotalAssets) {
		return &ExceededMaxDepositError{Receiver: receiver, Assets: assets, Max: v.MaxDeposit(receiver)}
	}
	return nil
}

func (v *Vault) deposit(caller, receiver common.Address, assets, shares sdkmath.Uint) error {
	if shares.IsZero() {
		return fmt.Errorf("%w: deposit of %s", ErrZeroShares, assets)
	}
	fee := feemath.FeeOnTotal(assets, v.params.EntryFeeBasisPoints)
	return v.journal.Atomic(func() error {
		if err := v.asset.TransferFrom(v.addr, caller, v.addr, assets); err != nil {
			return fmt.Errorf("sharevault: pull assets: %w", err)
		}
		if err := v.shares.Mint(receiver, shares); err != nil {
			return fmt.Errorf("sharevault: mint shares: %w", err)
		}
		if !fee.IsZero() {
			if err := v.asset.Transfer(v.addr, v.treasury, fee); err != nil {
				return fmt.Errorf("sharevault: entry fee: %w", err)
			}
		}
		if v.rewards.enabled() {
			v.rewards.credit(assets.Sub(fee))
		}
		v.journal.Emit(events.VaultDeposit{Sender: caller, Owner: receiver, Assets: assets, Shares: shares})
		return nil
	})
}

// Withdraw burns owner's shares to pay assets, net of the exit fee, to
// receiver. It returns the burned shares.
func (v *Vault) Withdraw(ctx context.Context, caller common.Address, assets sdkmath.Uint, receiver, owner common.Address) (sdkmath.Uint, error) {
	if receiver == (common.Address{}) {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: receiver", ErrZeroAddress)
	}
	maxAssets, err := v.MaxWithdraw(owner)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	if assets.GT(maxAssets) {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: %s assets, max %s", ErrExceededMaxWithdraw, assets, maxAssets)
	}
	shares, err := v.PreviewWithdraw(assets)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	if err := v.withdraw(ctx, caller, receiver, owner, assets, shares); err != nil {
		return sdkmath.ZeroUint(), err
	}
	return shares, nil
}

// Redeem burns shares from owner and pays their assets, net of the exit fee,
// to receiver. It returns the assets paid.
func (v *Vault) Redeem(ctx context.Context, caller common.Address, shares sdkmath.Uint, receiver, owner common.Address) (sdkmath.Uint, error) {
	if receiver == (common.Address{}) {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: receiver", ErrZeroAddress)
	}
	if maxShares := v.MaxRedeem(owner); shares.GT(maxShares) {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: %s shares, max %s", ErrExceededMaxRedeem, shares, maxShares)
	}
	assets, err := v.PreviewRedeem(shares)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	if err := v.withdraw(ctx, caller, receiver, owner, assets, shares); err != nil {
		return sdkmath.ZeroUint(), err
	}
	return assets, nil
}

// withdraw burns shares before asking the dispatcher for any shortfall, so a
// dispatcher calling back into the vault sees the reduced supply.
func (v *Vault) withdraw(ctx context.Context, caller, receiver, owner common.Address, assets, shares sdkmath.Uint) error {
	if shares.IsZero() {
		return fmt.Errorf("%w: withdraw of %s", ErrZeroShares, assets)
	}
	fee := feemath.FeeOnRaw(assets, v.params.ExitFeeBasisPoints)
	gross := assets.Add(fee)

	return v.journal.Atomic(func() error {
		if caller != owner {
			if err := v.shares.SpendAllowance(owner, caller, shares); err != nil {
				return err
			}
		}
		if err := v.shares.Burn(owner, shares); err != nil {
			return fmt.Errorf("sharevault: burn shares: %w", err)
		}
		if v.rewards.enabled() {
			v.rewards.debit(gross, v.journal.Now())
		}

		if idle := v.asset.BalanceOf(v.addr); gross.GT(idle) {
			if v.dispatcher == nil {
				return fmt.Errorf("%w: need %s, idle %s", ErrInsufficientLiquidity, gross, idle)
			}
			if err := v.dispatcher.Withdraw(ctx, v.addr, gross.Sub(idle)); err != nil {
				return fmt.Errorf("sharevault: pull %s from dispatcher: %w", gross.Sub(idle), err)
			}
		}

		if err := v.asset.Transfer(v.addr, receiver, assets); err != nil {
			return fmt.Errorf("sharevault: pay receiver: %w", err)
		}
		if !fee.IsZero() {
			if err := v.asset.Transfer(v.addr, v.treasury, fee); err != nil {
				return fmt.Errorf("sharevault: exit fee: %w", err)
			}
		}
		v.journal.Emit(events.VaultWithdraw{
			Sender:   caller,
			Receiver: receiver,
			Owner:    owner,
			Assets:   assets,
			Shares:   shares,
		})
		return nil
	})
}
