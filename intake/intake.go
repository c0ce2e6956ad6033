// Package intake implements the deposit intake state machine. It gates the
// one-time bridging of a Bitcoin deposit into a single vault credit, or parks
// the bridged amount in a queue until it is staked or recalled.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/access"
	"github.com/bitfsorg/btcvault-go/events"
	"github.com/bitfsorg/btcvault-go/txn"
)

// Asset is the bridged token as seen by the intake.
type Asset interface {
	Transfer(from, to common.Address, amount sdkmath.Uint) error
	Approve(owner, spender common.Address, amount sdkmath.Uint) error
}

// Vault is the share vault credited by finalized deposits.
type Vault interface {
	Address() common.Address
	Deposit(ctx context.Context, caller common.Address, assets sdkmath.Uint, receiver common.Address) (sdkmath.Uint, error)
}

// Settings configures an Intake.
type Settings struct {
	// Address is the account the bridge mints deposits to.
	Address common.Address
	// TbtcVault is the custody vault every reveal must target.
	TbtcVault           common.Address
	Treasury            common.Address
	DepositorFeeDivisor uint64
}

// Intake owns every DepositRecord.
type Intake struct {
	addr      common.Address
	tbtcVault common.Address

	acl     *access.Table
	journal *txn.Journal
	bridge  Bridge
	asset   Asset
	vault   Vault
	records RecordStore

	treasury            common.Address
	depositorFeeDivisor uint64
}

// New creates an intake and registers its state with the journal. The record
// store is registered too when it supports snapshots.
func New(s Settings, acl *access.Table, j *txn.Journal, bridge Bridge, asset Asset, vault Vault, records RecordStore) (*Intake, error) {
	if s.Address == (common.Address{}) {
		return nil, fmt.Errorf("%w: intake address", ErrZeroAddress)
	}
	if s.TbtcVault == (common.Address{}) {
		return nil, fmt.Errorf("%w: tbtc vault", ErrZeroAddress)
	}
	if s.Treasury == (common.Address{}) {
		return nil, fmt.Errorf("%w: treasury", ErrZeroAddress)
	}
	in := &Intake{
		addr:                s.Address,
		tbtcVault:           s.TbtcVault,
		acl:                 acl,
		journal:             j,
		bridge:              bridge,
		asset:               asset,
		vault:               vault,
		records:             records,
		treasury:            s.Treasury,
		depositorFeeDivisor: s.DepositorFeeDivisor,
	}
	j.Register(in)
	switch st := records.(type) {
	case txn.Checkpointer:
		j.RegisterCheckpointer(st)
	case txn.Snapshotter:
		j.Register(st)
	}
	return in, nil
}

// Snapshot captures the governance parameters.
func (in *Intake) Snapshot() func() {
	treasury, divisor := in.treasury, in.depositorFeeDivisor
	return func() {
		in.treasury, in.depositorFeeDivisor = treasury, divisor
	}
}

// Address returns the intake account.
func (in *Intake) Address() common.Address { return in.addr }

// Treasury returns the depositor fee recipient.
func (in *Intake) Treasury() common.Address { return in.treasury }

// DepositorFeeDivisor returns the current divisor; zero disables the fee.
func (in *Intake) DepositorFeeDivisor() uint64 { return in.depositorFeeDivisor }

// Record returns the record for key. An unknown key yields a record in
// StateUnknown rather than an error.
func (in *Intake) Record(key FundingKey) (*DepositRecord, error) {
	rec, err := in.records.Get(key)
	if errors.Is(err, ErrRecordNotFound) {
		return newRecord(key, common.Address{}, time.Time{}), nil
	}
	return rec, err
}

// QueuedTotal sums the amounts currently parked in the queue.
func (in *Intake) QueuedTotal() (sdkmath.Uint, error) {
	recs, err := in.records.List()
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	total := sdkmath.ZeroUint()
	for _, rec := range recs {
		if rec.State == StateQueued {
			total = total.Add(rec.QueuedAmount)
		}
	}
	return total, nil
}

// Initialize reveals a funding transaction to the bridge and opens the
// deposit record. The beneficiary and referral travel to the bridge packed
// in the extra data word.
func (in *Intake) Initialize(ctx context.Context, caller common.Address, fundingTx []byte, reveal RevealInfo, beneficiary common.Address, referral uint16) (FundingKey, error) {
	if beneficiary == (common.Address{}) {
		return FundingKey{}, ErrBeneficiaryIsZero
	}
	if reveal.Vault != in.tbtcVault {
		return FundingKey{}, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedTbtcVault, reveal.Vault.Hex(), in.tbtcVault.Hex())
	}
	output, err := ParseFundingTx(fundingTx, reveal.FundingOutputIndex)
	if err != nil {
		return FundingKey{}, err
	}
	key := output.Key()

	rec, err := in.Record(key)
	if err != nil {
		return FundingKey{}, err
	}
	if rec.State != StateUnknown {
		return FundingKey{}, fmt.Errorf("%w: %s is %s", ErrAlreadyRevealed, key.Hex(), rec.State)
	}

	err = in.journal.Atomic(func() error {
		if err := in.bridge.RevealFunding(ctx, fundingTx, reveal, EncodeExtraData(beneficiary, referral)); err != nil {
			return fmt.Errorf("intake: reveal %s: %w", key.Hex(), err)
		}
		rec = newRecord(key, caller, in.journal.Now())
		if err := rec.transition(StateInitialized); err != nil {
			return err
		}
		in.journal.Emit(events.DepositInitialized{
			FundingKey:    key.Hash(),
			FundingTxHash: output.TxHash,
			OutputIndex:   output.OutputIndex,
			Caller:        caller,
			AmountSat:     output.AmountSat,
		})
		return in.records.Put(rec)
	})
	if err != nil {
		return FundingKey{}, err
	}
	return key, nil
}

// FinalizeStake completes bridging and stakes the credited amount for the
// beneficiary. It returns the minted shares.
func (in *Intake) FinalizeStake(ctx context.Context, caller common.Address, key FundingKey) (sdkmath.Uint, error) {
	rec, err := in.load(key, StateInitialized)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}

	shares := sdkmath.ZeroUint()
	err = in.journal.Atomic(func() error {
		credit, err := in.finalizeBridging(ctx, caller, rec)
		if err != nil {
			return err
		}
		if shares, err = in.stake(ctx, credit, rec.Beneficiary); err != nil {
			return err
		}
		if err := rec.transition(StateFinalized); err != nil {
			return err
		}
		rec.FinalizedAt = in.journal.Now()
		in.journal.Emit(events.DepositFinalized{
			FundingKey:     key.Hash(),
			Beneficiary:    rec.Beneficiary,
			AmountToCredit: credit,
			Shares:         shares,
		})
		return in.records.Put(rec)
	})
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	return shares, nil
}

// QueueStake completes bridging and parks the credited amount instead of
// staking it.
func (in *Intake) QueueStake(ctx context.Context, caller common.Address, key FundingKey) error {
	rec, err := in.load(key, StateInitialized)
	if err != nil {
		return err
	}
	return in.journal.Atomic(func() error {
		credit, err := in.finalizeBridging(ctx, caller, rec)
		if err != nil {
			return err
		}
		rec.QueuedAmount = credit
		if err := rec.transition(StateQueued); err != nil {
			return err
		}
		in.journal.Emit(events.StakeRequestQueued{
			FundingKey:   key.Hash(),
			Caller:       caller,
			QueuedAmount: credit,
		})
		return in.records.Put(rec)
	})
}

// StakeFromQueue stakes a queued deposit for its beneficiary. Anyone may call it.
func (in *Intake) StakeFromQueue(ctx context.Context, caller common.Address, key FundingKey) (sdkmath.Uint, error) {
	rec, err := in.load(key, StateQueued)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}

	shares := sdkmath.ZeroUint()
	err = in.journal.Atomic(func() error {
		amount := rec.QueuedAmount
		rec.QueuedAmount = sdkmath.ZeroUint()
		if err := rec.transition(StateFinalizedFromQueue); err != nil {
			return err
		}
		rec.FinalizedAt = in.journal.Now()
		var err error
		if shares, err = in.stake(ctx, amount, rec.Beneficiary); err != nil {
			return err
		}
		in.journal.Emit(events.StakeRequestFinalizedFromQueue{
			FundingKey:   key.Hash(),
			Caller:       caller,
			StakedAmount: amount,
			Shares:       shares,
		})
		return in.records.Put(rec)
	})
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	return shares, nil
}

// RecallFromQueue returns a queued deposit to its beneficiary as raw assets.
// Only the beneficiary may call it.
func (in *Intake) RecallFromQueue(ctx context.Context, caller common.Address, key FundingKey) error {
	rec, err := in.load(key, StateQueued)
	if err != nil {
		return err
	}
	if caller != rec.Beneficiary {
		return fmt.Errorf("%w: %s", ErrCallerNotBeneficiary, caller.Hex())
	}
	return in.journal.Atomic(func() error {
		amount := rec.QueuedAmount
		rec.QueuedAmount = sdkmath.ZeroUint()
		if err := rec.transition(StateRecalledFromQueue); err != nil {
			return err
		}
		rec.FinalizedAt = in.journal.Now()
		if err := in.asset.Transfer(in.addr, rec.Beneficiary, amount); err != nil {
			return fmt.Errorf("intake: return %s to beneficiary: %w", key.Hex(), err)
		}
		in.journal.Emit(events.StakeRequestRecalled{
			FundingKey:  key.Hash(),
			Beneficiary: rec.Beneficiary,
			Amount:      amount,
		})
		return in.records.Put(rec)
	})
}

// UpdateDepositorFeeDivisor sets the depositor fee divisor. Owner only.
func (in *Intake) UpdateDepositorFeeDivisor(caller common.Address, divisor uint64) error {
	if err := in.acl.RequireOwner(caller); err != nil {
		return err
	}
	return in.journal.Atomic(func() error {
		in.depositorFeeDivisor = divisor
		in.journal.Emit(events.DepositorFeeDivisorUpdated{Divisor: divisor})
		return nil
	})
}

// UpdateTreasury sets the depositor fee recipient. Owner only.
func (in *Intake) UpdateTreasury(caller, treasury common.Address) error {
	if err := in.acl.RequireOwner(caller); err != nil {
		return err
	}
	if treasury == (common.Address{}) {
		return fmt.Errorf("%w: treasury", ErrZeroAddress)
	}
	if treasury == in.addr {
		return fmt.Errorf("intake: treasury cannot be the intake itself")
	}
	return in.journal.Atomic(func() error {
		old := in.treasury
		in.treasury = treasury
		in.journal.Emit(events.TreasuryUpdated{Component: "intake", Old: old, New: treasury})
		return nil
	})
}

// load fetches the record for key and checks it is in the expected state.
func (in *Intake) load(key FundingKey, expected State) (*DepositRecord, error) {
	rec, err := in.Record(key)
	if err != nil {
		return nil, err
	}
	if rec.State != expected {
		return nil, &UnexpectedStateError{Key: key, Actual: rec.State, Expected: expected}
	}
	return rec, nil
}

// finalizeBridging settles the bridge mint for rec: it decodes the
// beneficiary, takes the depositor fee and records the amount to credit.
// Once completed it only returns the recorded amount.
func (in *Intake) finalizeBridging(ctx context.Context, caller common.Address, rec *DepositRecord) (sdkmath.Uint, error) {
	if rec.BridgingCompleted {
		return rec.AmountToCredit, nil
	}

	finalized, err := in.bridge.IsFinalized(ctx, rec.Key)
	if err != nil {
		return sdkmath.ZeroUint(), fmt.Errorf("intake: query bridge for %s: %w", rec.Key.Hex(), err)
	}
	if !finalized {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: %s", ErrBridgingNotCompleted, rec.Key.Hex())
	}
	bridged, err := in.bridge.BridgedAmountFor(ctx, rec.Key)
	if err != nil {
		return sdkmath.ZeroUint(), fmt.Errorf("intake: bridged amount for %s: %w", rec.Key.Hex(), err)
	}
	raw, err := in.bridge.ExtraDataFor(ctx, rec.Key)
	if err != nil {
		return sdkmath.ZeroUint(), fmt.Errorf("intake: extra data for %s: %w", rec.Key.Hex(), err)
	}
	extra := DecodeExtraData(raw)
	if extra.Beneficiary == (common.Address{}) {
		return sdkmath.ZeroUint(), ErrBeneficiaryIsZero
	}

	fee := DepositorFee(bridged, in.depositorFeeDivisor)
	if in.depositorFeeDivisor > 0 && fee.GTE(bridged) {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: fee %s, bridged %s", ErrDepositorFeeExceedsBridgedAmount, fee, bridged)
	}
	if !fee.IsZero() {
		if err := in.asset.Transfer(in.addr, in.treasury, fee); err != nil {
			return sdkmath.ZeroUint(), fmt.Errorf("intake: transfer depositor fee: %w", err)
		}
	}

	credit := bridged.Sub(fee)
	rec.Beneficiary = extra.Beneficiary
	rec.Referral = extra.Referral
	rec.BridgingCompleted = true
	rec.BridgedAmount = bridged
	rec.DepositorFee = fee
	rec.AmountToCredit = credit

	in.journal.Emit(events.BridgingCompleted{
		FundingKey:    rec.Key.Hash(),
		Caller:        caller,
		Referral:      extra.Referral,
		BridgedAmount: bridged,
		DepositorFee:  fee,
	})
	return credit, nil
}

// stake deposits amount into the vault on behalf of beneficiary.
func (in *Intake) stake(ctx context.Context, amount sdkmath.Uint, beneficiary common.Address) (sdkmath.Uint, error) {
	if err := in.asset.Approve(in.addr, in.vault.Address(), amount); err != nil {
		return sdkmath.ZeroUint(), fmt.Errorf("intake: approve vault: %w", err)
	}
	shares, err := in.vault.Deposit(ctx, in.addr, amount, beneficiary)
	if err != nil {
		return sdkmath.ZeroUint(), fmt.Errorf("intake: stake for %s: %w", beneficiary.Hex(), err)
	}
	return shares, nil
}
