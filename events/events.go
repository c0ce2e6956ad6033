// Package events defines the append-only domain events published to the
// indexing layer, the envelope that orders them, and the sinks that receive
// one operation's complete trail at a time.
package events

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Kind identifies an event type on the wire and in storage.
type Kind string

const (
	KindDepositInitialized             Kind = "DepositInitialized"
	KindBridgingCompleted              Kind = "BridgingCompleted"
	KindDepositFinalized               Kind = "DepositFinalized"
	KindStakeRequestQueued             Kind = "StakeRequestQueued"
	KindStakeRequestFinalizedFromQueue Kind = "StakeRequestFinalizedFromQueue"
	KindStakeRequestRecalled           Kind = "StakeRequestRecalled"
	KindDepositorFeeDivisorUpdated     Kind = "DepositorFeeDivisorUpdated"
	KindVaultDeposit                   Kind = "Deposit"
	KindVaultWithdraw                  Kind = "Withdraw"
	KindDispatcherUpdated              Kind = "DispatcherUpdated"
	KindDepositParametersUpdated       Kind = "DepositParametersUpdated"
	KindFeeBasisPointsUpdated          Kind = "FeeBasisPointsUpdated"
	KindTreasuryUpdated                Kind = "TreasuryUpdated"
	KindRewardsSettled                 Kind = "RewardsSettled"
	KindDepositAllocated               Kind = "DepositAllocated"
	KindDepositWithdrawn               Kind = "DepositWithdrawn"
	KindDepositReleased                Kind = "DepositReleased"
	KindMaintainerAdded                Kind = "MaintainerAdded"
	KindMaintainerRemoved              Kind = "MaintainerRemoved"
)

// Event is any domain event.
type Event interface {
	Kind() Kind
}

// Envelope orders an event within the system-wide trail.
type Envelope struct {
	ID    uuid.UUID
	Seq   uint64
	At    time.Time
	Event Event
}

// Kind returns the kind of the wrapped event.
func (e Envelope) Kind() Kind { return e.Event.Kind() }

// --- Deposit intake ---

// DepositInitialized is emitted when a funding reveal is accepted.
type DepositInitialized struct {
	FundingKey    common.Hash    `json:"funding_key"`
	FundingTxHash common.Hash    `json:"funding_tx_hash"`
	OutputIndex   uint32         `json:"output_index"`
	Caller        common.Address `json:"caller"`
	AmountSat     uint64         `json:"amount_sat"`
}

// BridgingCompleted is emitted once per funding key when bridged tokens are
// accounted for and the depositor fee is taken.
type BridgingCompleted struct {
	FundingKey    common.Hash    `json:"funding_key"`
	Caller        common.Address `json:"caller"`
	Referral      uint16         `json:"referral"`
	BridgedAmount sdkmath.Uint   `json:"bridged_amount"`
	DepositorFee  sdkmath.Uint   `json:"depositor_fee"`
}

// DepositFinalized is emitted when a deposit is credited as vault shares.
type DepositFinalized struct {
	FundingKey     common.Hash    `json:"funding_key"`
	Beneficiary    common.Address `json:"beneficiary"`
	AmountToCredit sdkmath.Uint   `json:"amount_to_credit"`
	Shares         sdkmath.Uint   `json:"shares"`
}

// StakeRequestQueued is emitted when bridged funds are parked instead of staked.
type StakeRequestQueued struct {
	FundingKey   common.Hash    `json:"funding_key"`
	Caller       common.Address `json:"caller"`
	QueuedAmount sdkmath.Uint   `json:"queued_amount"`
}

// StakeRequestFinalizedFromQueue is emitted when parked funds are staked.
type StakeRequestFinalizedFromQueue struct {
	FundingKey   common.Hash    `json:"funding_key"`
	Caller       common.Address `json:"caller"`
	StakedAmount sdkmath.Uint   `json:"staked_amount"`
	Shares       sdkmath.Uint   `json:"shares"`
}

// StakeRequestRecalled is emitted when the beneficiary takes parked funds back.
type StakeRequestRecalled struct {
	FundingKey  common.Hash    `json:"funding_key"`
	Beneficiary common.Address `json:"beneficiary"`
	Amount      sdkmath.Uint   `json:"amount"`
}

// DepositorFeeDivisorUpdated is emitted when governance changes the depositor fee.
type DepositorFeeDivisorUpdated struct {
	Divisor uint64 `json:"divisor"`
}

// --- Share vault ---

// VaultDeposit mirrors the ERC4626 Deposit event.
type VaultDeposit struct {
	Sender common.Address `json:"sender"`
	Owner  common.Address `json:"owner"`
	Assets sdkmath.Uint   `json:"assets"`
	Shares sdkmath.Uint   `json:"shares"`
}

// VaultWithdraw mirrors the ERC4626 Withdraw event.
type VaultWithdraw struct {
	Sender   common.Address `json:"sender"`
	Receiver common.Address `json:"receiver"`
	Owner    common.Address `json:"owner"`
	Assets   sdkmath.Uint   `json:"assets"`
	Shares   sdkmath.Uint   `json:"shares"`
}

// DispatcherUpdated is emitted when the vault rotates its dispatcher.
type DispatcherUpdated struct {
	Old common.Address `json:"old"`
	New common.Address `json:"new"`
}

// DepositParametersUpdated is emitted when deposit bounds change.
type DepositParametersUpdated struct {
	MinimumDepositAmount sdkmath.Uint `json:"minimum_deposit_amount"`
	MaximumTotalAssets   sdkmath.Uint `json:"maximum_total_assets"`
}

// FeeBasisPointsUpdated is emitted when the entry or exit fee changes.
type FeeBasisPointsUpdated struct {
	Side        string `json:"side"`
	BasisPoints uint64 `json:"basis_points"`
}

// TreasuryUpdated is emitted when a component's fee recipient changes.
type TreasuryUpdated struct {
	Component string         `json:"component"`
	Old       common.Address `json:"old"`
	New       common.Address `json:"new"`
}

// RewardsSettled is emitted when a rewards cycle is closed.
type RewardsSettled struct {
	Profit            sdkmath.Uint `json:"profit"`
	Loss              sdkmath.Uint `json:"loss"`
	StoredTotalAssets sdkmath.Uint `json:"stored_total_assets"`
	CycleEnd          time.Time    `json:"cycle_end"`
}

// --- Allocation ledger ---

// DepositAllocated is emitted when idle vault assets are placed with the custodian.
type DepositAllocated struct {
	OldDepositID     uint64       `json:"old_deposit_id"`
	NewDepositID     uint64       `json:"new_deposit_id"`
	AddedAmount      sdkmath.Uint `json:"added_amount"`
	NewDepositAmount sdkmath.Uint `json:"new_deposit_amount"`
}

// DepositWithdrawn is emitted when tracked principal is pulled from the custodian.
type DepositWithdrawn struct {
	DepositID uint64       `json:"deposit_id"`
	Amount    sdkmath.Uint `json:"amount"`
}

// DepositReleased is emitted when governance releases the tracked position.
type DepositReleased struct {
	DepositID uint64       `json:"deposit_id"`
	Amount    sdkmath.Uint `json:"amount"`
}

// MaintainerAdded is emitted when a maintainer is authorized.
type MaintainerAdded struct {
	Maintainer common.Address `json:"maintainer"`
}

// MaintainerRemoved is emitted when a maintainer is deauthorized.
type MaintainerRemoved struct {
	Maintainer common.Address `json:"maintainer"`
}

func (DepositInitialized) Kind() Kind             { return KindDepositInitialized }
func (BridgingCompleted) Kind() Kind              { return KindBridgingCompleted }
func (DepositFinalized) Kind() Kind               { return KindDepositFinalized }
func (StakeRequestQueued) Kind() Kind             { return KindStakeRequestQueued }
func (StakeRequestFinalizedFromQueue) Kind() Kind { return KindStakeRequestFinalizedFromQueue }
func (StakeRequestRecalled) Kind() Kind           { return KindStakeRequestRecalled }
func (DepositorFeeDivisorUpdated) Kind() Kind     { return KindDepositorFeeDivisorUpdated }
func (VaultDeposit) Kind() Kind                   { return KindVaultDeposit }
func (VaultWithdraw) Kind() Kind                  { return KindVaultWithdraw }
func (DispatcherUpdated) Kind() Kind              { return KindDispatcherUpdated }
func (DepositParametersUpdated) Kind() Kind       { return KindDepositParametersUpdated }
func (FeeBasisPointsUpdated) Kind() Kind          { return KindFeeBasisPointsUpdated }
func (TreasuryUpdated) Kind() Kind                { return KindTreasuryUpdated }
func (RewardsSettled) Kind() Kind                 { return KindRewardsSettled }
func (DepositAllocated) Kind() Kind               { return KindDepositAllocated }
func (DepositWithdrawn) Kind() Kind               { return KindDepositWithdrawn }
func (DepositReleased) Kind() Kind                { return KindDepositReleased }
func (MaintainerAdded) Kind() Kind                { return KindMaintainerAdded }
func (MaintainerRemoved) Kind() Kind              { return KindMaintainerRemoved }
