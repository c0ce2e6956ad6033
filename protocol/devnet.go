package protocol

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/intake"
	"github.com/bitfsorg/btcvault-go/sim"
	"github.com/bitfsorg/btcvault-go/token"
)

// AssetSymbol is the symbol of the bridged token.
const AssetSymbol = "tBTC"

// Devnet is a System running against the in-process bridge and custodian.
type Devnet struct {
	*System
	Bridge    *sim.Bridge
	Custodian *sim.Custodian
}

// NewDevnet builds a system whose bridge and custodian are simulated.
// Token balances and simulator state live in memory, so the persisted
// stores must be empty.
func NewDevnet(s Settings, params intake.BridgeParams, yieldBps uint64) (*Devnet, error) {
	if err := checkFresh(s); err != nil {
		return nil, err
	}
	asset := token.NewLedger(AssetSymbol)
	bridge := sim.NewBridge(asset, s.Accounts.Intake, params)
	custodian := sim.NewCustodian(s.Accounts.Custodian, s.Accounts.Allocator, s.Accounts.Asset, asset)
	custodian.SetYieldBps(yieldBps)

	sys, err := New(s, asset, Collaborators{Bridge: bridge, Custodian: custodian})
	if err != nil {
		return nil, err
	}
	return &Devnet{System: sys, Bridge: bridge, Custodian: custodian}, nil
}

func checkFresh(s Settings) error {
	if s.Records != nil {
		recs, err := s.Records.List()
		if err != nil {
			return fmt.Errorf("protocol: list deposit records: %w", err)
		}
		if len(recs) > 0 {
			return fmt.Errorf("%w: %d deposit records", ErrStaleDevnetState, len(recs))
		}
	}
	if s.Allocation != nil {
		state, err := s.Allocation.Load()
		if err != nil {
			return fmt.Errorf("protocol: load allocation state: %w", err)
		}
		if state.DepositID > 0 {
			return fmt.Errorf("%w: allocation deposit id %d", ErrStaleDevnetState, state.DepositID)
		}
	}
	return nil
}

// Faucet mints amount of the bridged token to addr.
func (d *Devnet) Faucet(addr common.Address, amount sdkmath.Uint) error {
	return d.do(func() error { return d.asset.Mint(addr, amount) })
}

// FinalizeBridging makes the simulated bridge mint for a revealed deposit.
func (d *Devnet) FinalizeBridging(key intake.FundingKey) (sdkmath.Uint, error) {
	return locked(d.System, func() (sdkmath.Uint, error) { return d.Bridge.Finalize(key) })
}

// PendingBridging lists revealed deposits the bridge has not minted for.
func (d *Devnet) PendingBridging() []intake.FundingKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Bridge.Pending()
}

// AwaitingStake lists deposits the bridge has minted for whose records are
// still Initialized.
func (d *Devnet) AwaitingStake() []intake.FundingKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	var keys []intake.FundingKey
	for _, r := range d.Bridge.Reveals() {
		if !r.Finalized {
			continue
		}
		rec, err := d.intake.Record(r.Key)
		if err == nil && rec.State == intake.StateInitialized {
			keys = append(keys, r.Key)
		}
	}
	return keys
}

// AccrueYield adds amount of yield to the open custodial position.
func (d *Devnet) AccrueYield(amount sdkmath.Uint) error {
	return d.do(func() error {
		id := d.alloc.DepositID()
		if id == 0 {
			return fmt.Errorf("%w: nothing allocated", sim.ErrUnknownPosition)
		}
		return d.Custodian.Accrue(id, amount)
	})
}

// EstimateDeposit returns the bridge fee split for a deposit of depositSat.
func (d *Devnet) EstimateDeposit(depositSat uint64) (intake.FeeBreakdown, error) {
	p := d.Bridge.Params()
	return intake.EstimateBridgedAmount(depositSat, intake.TreasuryFeeSat(depositSat, p), p)
}
