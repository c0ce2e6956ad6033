// Package sim provides in-process stand-ins for the bridge and the
// custodian. They move real balances on a token ledger so a devnet system
// behaves like the deployed one, and they take part in rollback through
// Snapshot.
package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/intake"
)

// Minter mints the bridged token.
type Minter interface {
	Mint(to common.Address, amount sdkmath.Uint) error
}

// Reveal is the bridge's view of one revealed deposit.
type Reveal struct {
	Key       intake.FundingKey
	AmountSat uint64
	Info      intake.RevealInfo
	ExtraData [intake.ExtraDataSize]byte
	Finalized bool
	Bridged   sdkmath.Uint
}

// Bridge simulates the bridging collaborator. Minted tokens go to the
// recipient, which is the intake account.
type Bridge struct {
	mu        sync.Mutex
	asset     Minter
	recipient common.Address
	params    intake.BridgeParams
	reveals   map[intake.FundingKey]Reveal
}

var _ intake.Bridge = (*Bridge)(nil)

// NewBridge creates a bridge minting asset to recipient under params.
func NewBridge(asset Minter, recipient common.Address, params intake.BridgeParams) *Bridge {
	return &Bridge{
		asset:     asset,
		recipient: recipient,
		params:    params,
		reveals:   make(map[intake.FundingKey]Reveal),
	}
}

// Params returns the fee parameters used by Finalize.
func (b *Bridge) Params() intake.BridgeParams { return b.params }

// RevealFunding records a deposit reveal.
func (b *Bridge) RevealFunding(_ context.Context, fundingTx []byte, reveal intake.RevealInfo, extraData [intake.ExtraDataSize]byte) error {
	out, err := intake.ParseFundingTx(fundingTx, reveal.FundingOutputIndex)
	if err != nil {
		return err
	}
	key := out.Key()

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.reveals[key]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRevealed, key)
	}
	b.reveals[key] = Reveal{
		Key:       key,
		AmountSat: out.AmountSat,
		Info:      reveal,
		ExtraData: extraData,
		Bridged:   sdkmath.ZeroUint(),
	}
	return nil
}

// IsFinalized reports whether the bridge minted for key.
func (b *Bridge) IsFinalized(_ context.Context, key intake.FundingKey) (bool, error) {
	r, err := b.get(key)
	if err != nil {
		return false, err
	}
	return r.Finalized, nil
}

// BridgedAmountFor returns the amount minted for key.
func (b *Bridge) BridgedAmountFor(_ context.Context, key intake.FundingKey) (sdkmath.Uint, error) {
	r, err := b.get(key)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	return r.Bridged, nil
}

// ExtraDataFor returns the extra data revealed with key.
func (b *Bridge) ExtraDataFor(_ context.Context, key intake.FundingKey) ([intake.ExtraDataSize]byte, error) {
	r, err := b.get(key)
	if err != nil {
		return [intake.ExtraDataSize]byte{}, err
	}
	return r.ExtraData, nil
}

// Finalize mints the amount the bridge would mint for the deposit after its
// own fees and returns it.
func (b *Bridge) Finalize(key intake.FundingKey) (sdkmath.Uint, error) {
	r, err := b.get(key)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	fees, err := intake.EstimateBridgedAmount(r.AmountSat, intake.TreasuryFeeSat(r.AmountSat, b.params), b.params)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	if err := b.FinalizeAmount(key, fees.BridgedAmount); err != nil {
		return sdkmath.ZeroUint(), err
	}
	return fees.BridgedAmount, nil
}

// FinalizeAmount mints amount for key to the recipient.
func (b *Bridge) FinalizeAmount(key intake.FundingKey, amount sdkmath.Uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.reveals[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDeposit, key)
	}
	if r.Finalized {
		return fmt.Errorf("%w: %s", ErrAlreadyFinalized, key)
	}
	if err := b.asset.Mint(b.recipient, amount); err != nil {
		return fmt.Errorf("sim: mint bridged amount: %w", err)
	}
	r.Finalized = true
	r.Bridged = amount
	b.reveals[key] = r
	return nil
}

// Reveals lists every reveal ordered by key.
func (b *Bridge) Reveals() []Reveal {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Reveal, 0, len(b.reveals))
	for _, r := range b.reveals {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Hex() < out[j].Key.Hex() })
	return out
}

// Pending lists the keys revealed but not yet finalized.
func (b *Bridge) Pending() []intake.FundingKey {
	var keys []intake.FundingKey
	for _, r := range b.Reveals() {
		if !r.Finalized {
			keys = append(keys, r.Key)
		}
	}
	return keys
}

// Snapshot captures the reveal table for rollback.
func (b *Bridge) Snapshot() func() {
	b.mu.Lock()
	saved := make(map[intake.FundingKey]Reveal, len(b.reveals))
	for k, r := range b.reveals {
		saved[k] = r
	}
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		b.reveals = saved
		b.mu.Unlock()
	}
}

func (b *Bridge) get(key intake.FundingKey) (Reveal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.reveals[key]
	if !ok {
		return Reveal{}, fmt.Errorf("%w: %s", ErrUnknownDeposit, key)
	}
	return r, nil
}
