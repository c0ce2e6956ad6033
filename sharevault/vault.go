// Package sharevault implements the fee-adjusted share ledger: an
// ERC4626-style vault over the bridged asset with entry and exit fees, a
// deposit ceiling, a pluggable dispatcher that places idle assets with a
// custodian, and optional rewards-cycle smoothing of reported assets.
package sharevault

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/access"
	"github.com/bitfsorg/btcvault-go/events"
	"github.com/bitfsorg/btcvault-go/feemath"
	"github.com/bitfsorg/btcvault-go/txn"
)

// Asset is the underlying bridged token.
type Asset interface {
	BalanceOf(addr common.Address) sdkmath.Uint
	Transfer(from, to common.Address, amount sdkmath.Uint) error
	TransferFrom(spender, from, to common.Address, amount sdkmath.Uint) error
	Approve(owner, spender common.Address, amount sdkmath.Uint) error
}

// Shares is the vault share token.
type Shares interface {
	TotalSupply() sdkmath.Uint
	BalanceOf(addr common.Address) sdkmath.Uint
	Mint(to common.Address, amount sdkmath.Uint) error
	Burn(from common.Address, amount sdkmath.Uint) error
	SpendAllowance(owner, spender common.Address, amount sdkmath.Uint) error
}

// Dispatcher places idle vault assets with a yield venue and returns them on
// demand. The vault grants it an unlimited allowance.
type Dispatcher interface {
	Address() common.Address
	// TotalAssets is what the dispatcher holds on the vault's behalf.
	TotalAssets() sdkmath.Uint
	// Withdraw sends amount back to the vault.
	Withdraw(ctx context.Context, caller common.Address, amount sdkmath.Uint) error
}

// Parameters bound deposits and set the fees.
type Parameters struct {
	MinimumDepositAmount sdkmath.Uint
	// MaximumTotalAssets of feemath.MaxUint256 disables the ceiling.
	MaximumTotalAssets  sdkmath.Uint
	EntryFeeBasisPoints uint64
	ExitFeeBasisPoints  uint64
}

// DefaultParameters returns a 0.01 token minimum deposit, no ceiling and no fees.
func DefaultParameters() Parameters {
	return Parameters{
		MinimumDepositAmount: sdkmath.NewUint(10_000_000_000_000_000),
		MaximumTotalAssets:   feemath.MaxUint256,
	}
}

// Validate checks fee bounds.
func (p Parameters) Validate() error {
	if p.EntryFeeBasisPoints > feemath.BasisPointScale {
		return fmt.Errorf("%w: entry %d", ErrInvalidFeeBasisPoints, p.EntryFeeBasisPoints)
	}
	if p.ExitFeeBasisPoints > feemath.BasisPointScale {
		return fmt.Errorf("%w: exit %d", ErrInvalidFeeBasisPoints, p.ExitFeeBasisPoints)
	}
	return nil
}

// Settings configures a Vault.
type Settings struct {
	Address    common.Address
	Treasury   common.Address
	Parameters Parameters
	// RewardsCycleLength of zero disables smoothing.
	RewardsCycleLength time.Duration
}

// Vault is the share ledger. It is not safe for concurrent use; callers
// serialize access.
type Vault struct {
	addr    common.Address
	acl     *access.Table
	journal *txn.Journal
	asset   Asset
	shares  Shares

	params     Parameters
	treasury   common.Address
	dispatcher Dispatcher

	rewards rewardsCycle
}

// New creates a vault and registers its state with the journal.
func New(s Settings, acl *access.Table, j *txn.Journal, asset Asset, shares Shares) (*Vault, error) {
	if s.Address == (common.Address{}) {
		return nil, fmt.Errorf("%w: vault address", ErrZeroAddress)
	}
	if s.Treasury == (common.Address{}) {
		return nil, fmt.Errorf("%w: treasury", ErrZeroAddress)
	}
	if err := s.Parameters.Validate(); err != nil {
		return nil, err
	}
	if s.RewardsCycleLength%time.Second != 0 || s.RewardsCycleLength < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCycleLength, s.RewardsCycleLength)
	}
	v := &Vault{
		addr:     s.Address,
		acl:      acl,
		journal:  j,
		asset:    asset,
		shares:   shares,
		params:   s.Parameters,
		treasury: s.Treasury,
	}
	v.rewards.length = s.RewardsCycleLength
	if v.rewards.enabled() {
		v.rewards.restart(v.liveAssets(), j.Now())
	}
	j.Register(v)
	return v, nil
}

// Snapshot captures governance state and the rewards cycle.
func (v *Vault) Snapshot() func() {
	params, treasury, dispatcher, rewards := v.params, v.treasury, v.dispatcher, v.rewards
	return func() {
		v.params, v.treasury, v.dispatcher, v.rewards = params, treasury, dispatcher, rewards
	}
}

// Address returns the vault account.
func (v *Vault) Address() common.Address { return v.addr }

// Parameters returns the current deposit parameters.
func (v *Vault) Parameters() Parameters { return v.params }

// Treasury returns the fee recipient.
func (v *Vault) Treasury() common.Address { return v.treasury }

// Dispatcher returns the current dispatcher, or nil.
func (v *Vault) Dispatcher() Dispatcher { return v.dispatcher }

// UpdateDispatcher moves the unlimited asset allowance from the old
// dispatcher to d. Owner only.
func (v *Vault) UpdateDispatcher(caller common.Address, d Dispatcher) error {
	if err := v.acl.RequireOwner(caller); err != nil {
		return err
	}
	if d == nil || d.Address() == (common.Address{}) {
		return fmt.Errorf("%w: dispatcher", ErrZeroAddress)
	}
	return v.journal.Atomic(func() error {
		var old common.Address
		if v.dispatcher != nil {
			old = v.dispatcher.Address()
			if err := v.asset.Approve(v.addr, old, sdkmath.ZeroUint()); err != nil {
				return fmt.Errorf("sharevault: revoke dispatcher: %w", err)
			}
		}
		if err := v.asset.Approve(v.addr, d.Address(), feemath.MaxUint256); err != nil {
			return fmt.Errorf("sharevault: approve dispatcher: %w", err)
		}
		v.dispatcher = d
		v.journal.Emit(events.DispatcherUpdated{Old: old, New: d.Address()})
		return nil
	})
}

// UpdateDepositParameters sets the minimum deposit and the total assets
// ceiling. Owner only.
func (v *Vault) UpdateDepositParameters(caller common.Address, minimum, maximumTotalAssets sdkmath.Uint) error {
	if err := v.acl.RequireOwner(caller); err != nil {
		return err
	}
	return v.journal.Atomic(func() error {
		v.params.MinimumDepositAmount = minimum
		v.params.MaximumTotalAssets = maximumTotalAssets
		v.journal.Emit(events.DepositParametersUpdated{
			MinimumDepositAmount: minimum,
			MaximumTotalAssets:   maximumTotalAssets,
		})
		return nil
	})
}

// UpdateEntryFeeBasisPoints sets the entry fee. Owner only.
func (v *Vault) UpdateEntryFeeBasisPoints(caller common.Address, bps uint64) error {
	return v.updateFee(caller, "entry", bps, &v.params.EntryFeeBasisPoints)
}

// UpdateExitFeeBasisPoints sets the exit fee. Owner only.
func (v *Vault) UpdateExitFeeBasisPoints(caller common.Address, bps uint64) error {
	return v.updateFee(caller, "exit", bps, &v.params.ExitFeeBasisPoints)
}

func (v *Vault) updateFee(caller common.Address, side string, bps uint64, field *uint64) error {
	if err := v.acl.RequireOwner(caller); err != nil {
		return err
	}
	if bps > feemath.BasisPointScale {
		return fmt.Errorf("%w: %s %d", ErrInvalidFeeBasisPoints, side, bps)
	}
	return v.journal.Atomic(func() error {
		*field = bps
		v.journal.Emit(events.FeeBasisPointsUpdated{Side: side, BasisPoints: bps})
		return nil
	})
}

// UpdateTreasury sets the fee recipient. Owner only.
func (v *Vault) UpdateTreasury(caller, treasury common.Address) error {
	if err := v.acl.RequireOwner(caller); err != nil {
		return err
	}
	if treasury == (common.Address{}) {
		return fmt.Errorf("%w: treasury", ErrZeroAddress)
	}
	if treasury == v.addr {
		return fmt.Errorf("sharevault: treasury cannot be the vault itself")
	}
	return v.journal.Atomic(func() error {
		old := v.treasury
		v.treasury = treasury
		v.journal.Emit(events.TreasuryUpdated{Component: "vault", Old: old, New: treasury})
		return nil
	})
}
