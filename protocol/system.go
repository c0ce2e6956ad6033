// Package protocol wires the deposit intake, the share vault and the
// allocation ledger into one system and serializes every call into it.
package protocol

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/access"
	"github.com/bitfsorg/btcvault-go/allocator"
	"github.com/bitfsorg/btcvault-go/events"
	"github.com/bitfsorg/btcvault-go/intake"
	"github.com/bitfsorg/btcvault-go/sharevault"
	"github.com/bitfsorg/btcvault-go/token"
	"github.com/bitfsorg/btcvault-go/txn"
)

// SharesSymbol is the symbol of the vault share token.
const SharesSymbol = "stBTC"

// Settings configures a System.
type Settings struct {
	Accounts Accounts

	Governance  common.Address
	Treasury    common.Address
	TbtcVault   common.Address
	Maintainers []common.Address

	DepositorFeeDivisor uint64
	Vault               sharevault.Parameters
	RewardsCycleLength  time.Duration

	// Sink receives each committed event trail. Nil discards events.
	Sink events.Sink
	// EventSeq is the last sequence number already recorded by Sink.
	EventSeq uint64
	// Clock defaults to time.Now.
	Clock func() time.Time

	// Records and Allocation default to in-memory stores.
	Records    intake.RecordStore
	Allocation allocator.StateStore

	// Archive keeps the raw funding transaction of each initialized
	// deposit. Nil disables archiving.
	Archive FundingArchive
}

// FundingArchive stores raw funding transactions by funding key.
type FundingArchive interface {
	Put(key intake.FundingKey, rawTx []byte) error
}

// Collaborators are the external services the system calls out to.
type Collaborators struct {
	Bridge    intake.Bridge
	Custodian allocator.Custodian
}

// System is the single-writer façade over every component. All exported
// methods are safe for concurrent use; they run one at a time.
type System struct {
	mu sync.Mutex

	accounts Accounts
	asset    *token.Ledger
	shares   *token.Ledger
	acl      *access.Table
	journal  *txn.Journal
	archive  FundingArchive

	intake *intake.Intake
	vault  *sharevault.Vault
	alloc  *allocator.Allocator
}

// New builds a system over asset. The allocator becomes the vault's
// dispatcher and every maintainer also gets the settler role.
func New(s Settings, asset *token.Ledger, c Collaborators) (*System, error) {
	if err := s.Accounts.validate(); err != nil {
		return nil, err
	}
	if s.Governance == (common.Address{}) {
		return nil, fmt.Errorf("%w: governance", ErrZeroAddress)
	}
	if s.Records == nil {
		s.Records = intake.NewMemRecordStore()
	}
	if s.Allocation == nil {
		s.Allocation = allocator.NewMemStateStore()
	}

	acl, err := access.NewTable(s.Governance)
	if err != nil {
		return nil, err
	}
	j := txn.New(s.Sink, s.Clock)
	j.SetSeq(s.EventSeq)

	sys := &System{
		accounts: s.Accounts,
		asset:    asset,
		shares:   token.NewLedger(SharesSymbol),
		acl:      acl,
		journal:  j,
		archive:  s.Archive,
	}
	j.Register(sys.asset, sys.shares, acl)
	for _, collab := range []any{c.Bridge, c.Custodian} {
		if snap, ok := collab.(txn.Snapshotter); ok {
			j.Register(snap)
		}
	}

	sys.vault, err = sharevault.New(sharevault.Settings{
		Address:            s.Accounts.Vault,
		Treasury:           s.Treasury,
		Parameters:         s.Vault,
		RewardsCycleLength: s.RewardsCycleLength,
	}, acl, j, sys.asset, sys.shares)
	if err != nil {
		return nil, fmt.Errorf("protocol: vault: %w", err)
	}

	sys.intake, err = intake.New(intake.Settings{
		Address:             s.Accounts.Intake,
		TbtcVault:           s.TbtcVault,
		Treasury:            s.Treasury,
		DepositorFeeDivisor: s.DepositorFeeDivisor,
	}, acl, j, c.Bridge, sys.asset, sys.vault, s.Records)
	if err != nil {
		return nil, fmt.Errorf("protocol: intake: %w", err)
	}

	sys.alloc, err = allocator.New(allocator.Settings{
		Address: s.Accounts.Allocator,
		Vault:   s.Accounts.Vault,
		AssetID: s.Accounts.Asset,
	}, acl, j, sys.asset, c.Custodian, s.Allocation)
	if err != nil {
		return nil, fmt.Errorf("protocol: allocator: %w", err)
	}

	err = j.Atomic(func() error {
		if err := sys.vault.UpdateDispatcher(s.Governance, sys.alloc); err != nil {
			return err
		}
		for _, m := range s.Maintainers {
			if err := sys.addMaintainer(s.Governance, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("protocol: bootstrap: %w", err)
	}
	return sys, nil
}

func (s *System) addMaintainer(caller, m common.Address) error {
	return s.journal.Atomic(func() error {
		if err := s.alloc.AddMaintainer(caller, m); err != nil {
			return err
		}
		return s.acl.Grant(caller, access.RoleSettler, m)
	})
}

func (s *System) removeMaintainer(caller, m common.Address) error {
	return s.journal.Atomic(func() error {
		if err := s.alloc.RemoveMaintainer(caller, m); err != nil {
			return err
		}
		return s.acl.Revoke(caller, access.RoleSettler, m)
	})
}

func locked[T any](s *System, fn func() (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *System) do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// ---------------------------------------------------------------------------
// Components
// ---------------------------------------------------------------------------

// Accounts returns the system account addresses.
func (s *System) Accounts() Accounts { return s.accounts }

// Asset returns the bridged token ledger.
func (s *System) Asset() *token.Ledger { return s.asset }

// Shares returns the vault share ledger.
func (s *System) Shares() *token.Ledger { return s.shares }

// EventSeq returns the sequence number of the last committed event.
func (s *System) EventSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.journal.Seq()
}

// ---------------------------------------------------------------------------
// Deposit intake
// ---------------------------------------------------------------------------

// InitializeDeposit reveals a funding transaction and opens its record.
func (s *System) InitializeDeposit(ctx context.Context, caller common.Address, fundingTx []byte, reveal intake.RevealInfo, beneficiary common.Address, referral uint16) (intake.FundingKey, error) {
	return locked(s, func() (intake.FundingKey, error) {
		var key intake.FundingKey
		err := s.journal.Atomic(func() error {
			var err error
			key, err = s.intake.Initialize(ctx, caller, fundingTx, reveal, beneficiary, referral)
			if err != nil || s.archive == nil {
				return err
			}
			if err := s.archive.Put(key, fundingTx); err != nil {
				return fmt.Errorf("protocol: archive funding tx: %w", err)
			}
			return nil
		})
		return key, err
	})
}

// FinalizeStake stakes a bridged deposit and returns the shares minted.
func (s *System) FinalizeStake(ctx context.Context, caller common.Address, key intake.FundingKey) (sdkmath.Uint, error) {
	return locked(s, func() (sdkmath.Uint, error) { return s.intake.FinalizeStake(ctx, caller, key) })
}

// QueueStake parks a bridged deposit in the queue.
func (s *System) QueueStake(ctx context.Context, caller common.Address, key intake.FundingKey) error {
	return s.do(func() error { return s.intake.QueueStake(ctx, caller, key) })
}

// StakeFromQueue stakes a queued deposit.
func (s *System) StakeFromQueue(ctx context.Context, caller common.Address, key intake.FundingKey) (sdkmath.Uint, error) {
	return locked(s, func() (sdkmath.Uint, error) { return s.intake.StakeFromQueue(ctx, caller, key) })
}

// RecallFromQueue returns a queued deposit to its beneficiary.
func (s *System) RecallFromQueue(ctx context.Context, caller common.Address, key intake.FundingKey) error {
	return s.do(func() error { return s.intake.RecallFromQueue(ctx, caller, key) })
}

// Record returns the deposit record for key.
func (s *System) Record(key intake.FundingKey) (*intake.DepositRecord, error) {
	return locked(s, func() (*intake.DepositRecord, error) { return s.intake.Record(key) })
}

// QueuedTotal returns the sum of queued deposits.
func (s *System) QueuedTotal() (sdkmath.Uint, error) {
	return locked(s, s.intake.QueuedTotal)
}

// UpdateDepositorFeeDivisor sets the intake fee divisor. Governance only.
func (s *System) UpdateDepositorFeeDivisor(caller common.Address, divisor uint64) error {
	return s.do(func() error { return s.intake.UpdateDepositorFeeDivisor(caller, divisor) })
}

// UpdateTreasury moves both fee streams to treasury. Governance only.
func (s *System) UpdateTreasury(caller, treasury common.Address) error {
	return s.do(func() error {
		return s.journal.Atomic(func() error {
			if err := s.intake.UpdateTreasury(caller, treasury); err != nil {
				return err
			}
			return s.vault.UpdateTreasury(caller, treasury)
		})
	})
}

// ---------------------------------------------------------------------------
// Share vault
// ---------------------------------------------------------------------------

// Deposit deposits assets from caller for receiver and returns the shares minted.
func (s *System) Deposit(ctx context.Context, caller common.Address, assets sdkmath.Uint, receiver common.Address) (sdkmath.Uint, error) {
	return locked(s, func() (sdkmath.Uint, error) { return s.vault.Deposit(ctx, caller, assets, receiver) })
}

// Mint mints shares for receiver and returns the assets charged.
func (s *System) Mint(ctx context.Context, caller common.Address, shares sdkmath.Uint, receiver common.Address) (sdkmath.Uint, error) {
	return locked(s, func() (sdkmath.Uint, error) { return s.vault.Mint(ctx, caller, shares, receiver) })
}

// Withdraw withdraws assets to receiver and returns the shares burned.
func (s *System) Withdraw(ctx context.Context, caller common.Address, assets sdkmath.Uint, receiver, owner common.Address) (sdkmath.Uint, error) {
	return locked(s, func() (sdkmath.Uint, error) { return s.vault.Withdraw(ctx, caller, assets, receiver, owner) })
}

// Redeem burns shares and returns the assets paid to receiver.
func (s *System) Redeem(ctx context.Context, caller common.Address, shares sdkmath.Uint, receiver, owner common.Address) (sdkmath.Uint, error) {
	return locked(s, func() (sdkmath.Uint, error) { return s.vault.Redeem(ctx, caller, shares, receiver, owner) })
}

// Settle closes the vault rewards cycle. Settler role only.
func (s *System) Settle(caller common.Address) error {
	return s.do(func() error { return s.vault.Settle(caller) })
}

// UpdateDepositParameters sets the vault deposit bounds. Governance only.
func (s *System) UpdateDepositParameters(caller common.Address, minimum, maximumTotalAssets sdkmath.Uint) error {
	return s.do(func() error { return s.vault.UpdateDepositParameters(caller, minimum, maximumTotalAssets) })
}

// UpdateEntryFeeBasisPoints sets the vault entry fee. Governance only.
func (s *System) UpdateEntryFeeBasisPoints(caller common.Address, bps uint64) error {
	return s.do(func() error { return s.vault.UpdateEntryFeeBasisPoints(caller, bps) })
}

// UpdateExitFeeBasisPoints sets the vault exit fee. Governance only.
func (s *System) UpdateExitFeeBasisPoints(caller common.Address, bps uint64) error {
	return s.do(func() error { return s.vault.UpdateExitFeeBasisPoints(caller, bps) })
}

// SetRewardsCycleLength changes the smoothing window. Governance only.
func (s *System) SetRewardsCycleLength(caller common.Address, length time.Duration) error {
	return s.do(func() error { return s.vault.SetRewardsCycleLength(caller, length) })
}

// TotalAssets returns the vault's reported total assets.
func (s *System) TotalAssets() sdkmath.Uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vault.TotalAssets()
}

// TotalSupply returns the share supply.
func (s *System) TotalSupply() sdkmath.Uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vault.TotalSupply()
}

// SharesOf returns the share balance of owner.
func (s *System) SharesOf(owner common.Address) sdkmath.Uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vault.BalanceOf(owner)
}

// AssetsOf returns the asset balance of addr.
func (s *System) AssetsOf(addr common.Address) sdkmath.Uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asset.BalanceOf(addr)
}

// MaxWithdraw returns the assets owner can withdraw.
func (s *System) MaxWithdraw(owner common.Address) (sdkmath.Uint, error) {
	return locked(s, func() (sdkmath.Uint, error) { return s.vault.MaxWithdraw(owner) })
}

// MaxDeposit returns the assets receiver can still deposit.
func (s *System) MaxDeposit(receiver common.Address) sdkmath.Uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vault.MaxDeposit(receiver)
}

// RewardsCycleEnd returns the end of the current rewards cycle.
func (s *System) RewardsCycleEnd() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vault.RewardsCycleEnd()
}

// ApproveShares lets spender move owner's shares.
func (s *System) ApproveShares(owner, spender common.Address, amount sdkmath.Uint) error {
	return s.do(func() error {
		return s.journal.Atomic(func() error { return s.shares.Approve(owner, spender, amount) })
	})
}

// ApproveAssets lets spender move owner's assets.
func (s *System) ApproveAssets(owner, spender common.Address, amount sdkmath.Uint) error {
	return s.do(func() error {
		return s.journal.Atomic(func() error { return s.asset.Approve(owner, spender, amount) })
	})
}

// ---------------------------------------------------------------------------
// Allocation ledger
// ---------------------------------------------------------------------------

// Allocate places idle vault assets with the custodian. Maintainers only.
func (s *System) Allocate(ctx context.Context, caller common.Address) (sdkmath.Uint, error) {
	return locked(s, func() (sdkmath.Uint, error) { return s.alloc.Allocate(ctx, caller) })
}

// ReleaseDeposit returns every allocated asset to the vault. Governance only.
func (s *System) ReleaseDeposit(ctx context.Context, caller common.Address) (sdkmath.Uint, error) {
	return locked(s, func() (sdkmath.Uint, error) { return s.alloc.ReleaseDeposit(ctx, caller) })
}

// AddMaintainer grants the maintainer and settler roles. Governance only.
func (s *System) AddMaintainer(caller, maintainer common.Address) error {
	return s.do(func() error { return s.addMaintainer(caller, maintainer) })
}

// RemoveMaintainer revokes the maintainer and settler roles. Governance only.
func (s *System) RemoveMaintainer(caller, maintainer common.Address) error {
	return s.do(func() error { return s.removeMaintainer(caller, maintainer) })
}

// Maintainers lists the maintainers.
func (s *System) Maintainers() []common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alloc.Maintainers()
}

// Allocation returns the allocation ledger state and its local surplus.
func (s *System) Allocation() (allocator.State, sdkmath.Uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alloc.State(), s.alloc.Surplus()
}

// IdleAssets returns the assets held by the vault itself.
func (s *System) IdleAssets() sdkmath.Uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asset.BalanceOf(s.accounts.Vault)
}
