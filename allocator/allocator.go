// Package allocator implements the custodial allocation ledger. It places
// idle vault assets with an external custodian and tracks the principal it
// placed separately from any balance that reaches the allocator by other
// means. Only tracked principal is ever withdrawn from the custodian;
// untracked local balance is spent first.
package allocator

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/access"
	"github.com/bitfsorg/btcvault-go/events"
	"github.com/bitfsorg/btcvault-go/feemath"
	"github.com/bitfsorg/btcvault-go/txn"
)

// Asset is the token the allocator moves.
type Asset interface {
	BalanceOf(addr common.Address) sdkmath.Uint
	Transfer(from, to common.Address, amount sdkmath.Uint) error
	TransferFrom(spender, from, to common.Address, amount sdkmath.Uint) error
	Approve(owner, spender common.Address, amount sdkmath.Uint) error
}

// Settings configures an Allocator.
type Settings struct {
	Address common.Address
	// Vault is the only account allowed to withdraw and the source of idle assets.
	Vault common.Address
	// AssetID identifies the asset to the custodian.
	AssetID common.Address
}

// Allocator is the allocation ledger. It is not safe for concurrent use;
// callers serialize access.
type Allocator struct {
	addr    common.Address
	vault   common.Address
	assetID common.Address

	acl       *access.Table
	journal   *txn.Journal
	asset     Asset
	custodian Custodian
	store     StateStore

	state State
}

// New loads the persisted state and registers it with the journal.
func New(s Settings, acl *access.Table, j *txn.Journal, asset Asset, custodian Custodian, store StateStore) (*Allocator, error) {
	if s.Address == (common.Address{}) || s.Vault == (common.Address{}) {
		return nil, fmt.Errorf("%w: allocator or vault address", ErrZeroAddress)
	}
	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("allocator: load state: %w", err)
	}
	a := &Allocator{
		addr:      s.Address,
		vault:     s.Vault,
		assetID:   s.AssetID,
		acl:       acl,
		journal:   j,
		asset:     asset,
		custodian: custodian,
		store:     store,
		state:     state,
	}
	j.Register(a)
	switch st := store.(type) {
	case txn.Checkpointer:
		j.RegisterCheckpointer(st)
	case txn.Snapshotter:
		j.Register(st)
	}
	return a, nil
}

// Snapshot captures the in-memory state.
func (a *Allocator) Snapshot() func() {
	saved := a.state
	return func() { a.state = saved }
}

// Address returns the allocator account.
func (a *Allocator) Address() common.Address { return a.addr }

// DepositID returns the id of the active custodial position, zero before the first allocation.
func (a *Allocator) DepositID() uint64 { return a.state.DepositID }

// TrackedBalance returns principal placed through Allocate net of withdrawals.
func (a *Allocator) TrackedBalance() sdkmath.Uint { return a.state.TrackedBalance }

// Surplus returns the balance held by the allocator itself.
func (a *Allocator) Surplus() sdkmath.Uint { return a.asset.BalanceOf(a.addr) }

// TotalAssets returns tracked principal plus local surplus.
func (a *Allocator) TotalAssets() sdkmath.Uint {
	return a.state.TrackedBalance.Add(a.Surplus())
}

// State returns a copy of the ledger state.
func (a *Allocator) State() State { return a.state }

// Allocate places the vault's idle assets with the custodian. The previous
// position is closed and reopened together with the new assets under a
// fresh deposit id. Principal carried over is what the custodian returned,
// capped at the tracked balance, so a venue loss is realized here and local
// surplus is left where it is. Maintainers only. It returns the amount moved
// from the vault.
func (a *Allocator) Allocate(ctx context.Context, caller common.Address) (sdkmath.Uint, error) {
	if err := a.acl.Require(access.RoleMaintainer, caller); err != nil {
		return sdkmath.ZeroUint(), err
	}
	idle := a.asset.BalanceOf(a.vault)
	if idle.IsZero() {
		return idle, nil
	}

	err := a.journal.Atomic(func() error {
		oldID := a.state.DepositID
		tracked := a.state.TrackedBalance

		carried := sdkmath.ZeroUint()
		if !tracked.IsZero() {
			if err := a.commit(State{DepositID: oldID, TrackedBalance: sdkmath.ZeroUint()}); err != nil {
				return err
			}
			returned, err := a.closePosition(ctx, oldID)
			if err != nil {
				return fmt.Errorf("allocator: close deposit %d: %w", oldID, err)
			}
			carried = sdkmath.MinUint(returned, tracked)
		}
		if err := a.asset.TransferFrom(a.addr, a.vault, a.addr, idle); err != nil {
			return fmt.Errorf("allocator: pull idle assets: %w", err)
		}

		newTracked := carried.Add(idle)
		if err := a.asset.Approve(a.addr, a.custodian.Address(), newTracked); err != nil {
			return fmt.Errorf("allocator: approve custodian: %w", err)
		}
		newID, err := a.custodian.Deposit(ctx, a.assetID, newTracked)
		if err != nil {
			return fmt.Errorf("allocator: custodian deposit: %w", err)
		}
		if newID <= oldID {
			return fmt.Errorf("%w: got %d after %d", ErrNonMonotonicDepositID, newID, oldID)
		}
		if err := a.commit(State{DepositID: newID, TrackedBalance: newTracked}); err != nil {
			return err
		}
		a.journal.Emit(events.DepositAllocated{
			OldDepositID:     oldID,
			NewDepositID:     newID,
			AddedAmount:      idle,
			NewDepositAmount: newTracked,
		})
		return nil
	})
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	return idle, nil
}

// Withdraw sends amount to the vault, spending local surplus first and
// taking only the remainder from the custodian. Vault only.
func (a *Allocator) Withdraw(ctx context.Context, caller common.Address, amount sdkmath.Uint) error {
	if caller != a.vault {
		return fmt.Errorf("%w: %s", ErrCallerNotVault, caller.Hex())
	}
	surplus := a.Surplus()
	if amount.LTE(surplus) {
		return a.journal.Atomic(func() error {
			return a.payVault(amount)
		})
	}

	remainder := amount.Sub(surplus)
	tracked := a.state.TrackedBalance
	if remainder.GT(tracked) {
		return &WithdrawalExceedsBalanceError{Requested: amount, Available: surplus.Add(tracked)}
	}

	return a.journal.Atomic(func() error {
		id := a.state.DepositID
		if err := a.commit(State{DepositID: id, TrackedBalance: tracked.Sub(remainder)}); err != nil {
			return err
		}
		if remainder.LT(tracked) {
			if err := a.custodian.WithdrawPartial(ctx, a.assetID, id, remainder); err != nil {
				return fmt.Errorf("allocator: partial withdraw from deposit %d: %w", id, err)
			}
		} else {
			returned, err := a.closePosition(ctx, id)
			if err != nil {
				return fmt.Errorf("allocator: full withdraw from deposit %d: %w", id, err)
			}
			if returned.LT(remainder) {
				return fmt.Errorf("%w: deposit %d returned %s, expected %s", ErrCustodianShortfall, id, returned, remainder)
			}
		}
		a.journal.Emit(events.DepositWithdrawn{DepositID: id, Amount: remainder})
		return a.payVault(amount)
	})
}

// ReleaseDeposit closes the custodial position and returns everything the
// allocator holds to the vault. Owner only. It returns the amount sent.
func (a *Allocator) ReleaseDeposit(ctx context.Context, caller common.Address) (sdkmath.Uint, error) {
	if err := a.acl.RequireOwner(caller); err != nil {
		return sdkmath.ZeroUint(), err
	}

	released := sdkmath.ZeroUint()
	err := a.journal.Atomic(func() error {
		id, tracked := a.state.DepositID, a.state.TrackedBalance
		if !tracked.IsZero() {
			if err := a.commit(State{DepositID: id, TrackedBalance: sdkmath.ZeroUint()}); err != nil {
				return err
			}
			returned, err := a.closePosition(ctx, id)
			if err != nil {
				return fmt.Errorf("allocator: release deposit %d: %w", id, err)
			}
			a.journal.Emit(events.DepositReleased{DepositID: id, Amount: returned})
		}
		released = a.Surplus()
		if released.IsZero() {
			return nil
		}
		return a.payVault(released)
	})
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	return released, nil
}

// AddMaintainer grants the maintainer role. Owner only.
func (a *Allocator) AddMaintainer(caller, maintainer common.Address) error {
	return a.journal.Atomic(func() error {
		if err := a.acl.Grant(caller, access.RoleMaintainer, maintainer); err != nil {
			return err
		}
		a.journal.Emit(events.MaintainerAdded{Maintainer: maintainer})
		return nil
	})
}

// RemoveMaintainer revokes the maintainer role. Owner only.
func (a *Allocator) RemoveMaintainer(caller, maintainer common.Address) error {
	return a.journal.Atomic(func() error {
		if err := a.acl.Revoke(caller, access.RoleMaintainer, maintainer); err != nil {
			return err
		}
		a.journal.Emit(events.MaintainerRemoved{Maintainer: maintainer})
		return nil
	})
}

// Maintainers lists the maintainer role.
func (a *Allocator) Maintainers() []common.Address {
	return a.acl.Members(access.RoleMaintainer)
}

// commit updates the ledger state and persists it. Callers invoke it
// before any custodian call so a reentrant read sees the new balance.
func (a *Allocator) commit(s State) error {
	a.state = s
	if err := a.store.Save(s); err != nil {
		return fmt.Errorf("allocator: save state: %w", err)
	}
	return nil
}

// closePosition fully withdraws deposit id and returns what the custodian
// actually sent back.
func (a *Allocator) closePosition(ctx context.Context, id uint64) (sdkmath.Uint, error) {
	before := a.asset.BalanceOf(a.addr)
	if err := a.custodian.WithdrawFull(ctx, a.assetID, id); err != nil {
		return sdkmath.ZeroUint(), err
	}
	return feemath.SaturatingSub(a.asset.BalanceOf(a.addr), before), nil
}

func (a *Allocator) payVault(amount sdkmath.Uint) error {
	if err := a.asset.Transfer(a.addr, a.vault, amount); err != nil {
		return fmt.Errorf("allocator: pay vault: %w", err)
	}
	return nil
}
