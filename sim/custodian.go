package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/allocator"
	"github.com/bitfsorg/btcvault-go/feemath"
)

// Asset is the token ledger the custodian holds positions in.
type Asset interface {
	Minter
	Transfer(from, to common.Address, amount sdkmath.Uint) error
	TransferFrom(spender, from, to common.Address, amount sdkmath.Uint) error
}

// Position is one custodial deposit.
type Position struct {
	ID        uint64
	Principal sdkmath.Uint
	Balance   sdkmath.Uint
}

// CallCounts counts successful custodian calls.
type CallCounts struct {
	Deposits           int
	PartialWithdrawals int
	FullWithdrawals    int
}

type custodianState struct {
	positions map[uint64]Position
	nextID    uint64
	calls     CallCounts
	failNext  error
}

// Custodian simulates the yield venue for a single client account.
type Custodian struct {
	mu       sync.Mutex
	addr     common.Address
	client   common.Address
	assetID  common.Address
	asset    Asset
	yieldBps uint64

	st custodianState
}

var _ allocator.Custodian = (*Custodian)(nil)

// NewCustodian creates a custodian at addr serving client. assetID is the
// identifier the client passes on every call.
func NewCustodian(addr, client, assetID common.Address, asset Asset) *Custodian {
	return &Custodian{
		addr:    addr,
		client:  client,
		assetID: assetID,
		asset:   asset,
		st:      custodianState{positions: make(map[uint64]Position)},
	}
}

// Address returns the custodian account.
func (c *Custodian) Address() common.Address { return c.addr }

// SetYieldBps sets the yield minted onto a position when it is withdrawn in full.
func (c *Custodian) SetYieldBps(bps uint64) {
	c.mu.Lock()
	c.yieldBps = bps
	c.mu.Unlock()
}

// FailNext makes the next call return err.
func (c *Custodian) FailNext(err error) {
	c.mu.Lock()
	c.st.failNext = err
	c.mu.Unlock()
}

// Deposit pulls amount from the client and opens a position.
func (c *Custodian) Deposit(_ context.Context, asset common.Address, amount sdkmath.Uint) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.precheck(asset); err != nil {
		return 0, err
	}
	if err := c.asset.TransferFrom(c.addr, c.client, c.addr, amount); err != nil {
		return 0, fmt.Errorf("sim: pull deposit: %w", err)
	}
	c.st.nextID++
	c.st.positions[c.st.nextID] = Position{ID: c.st.nextID, Principal: amount, Balance: amount}
	c.st.calls.Deposits++
	return c.st.nextID, nil
}

// WithdrawPartial returns amount from the position to the client.
func (c *Custodian) WithdrawPartial(_ context.Context, asset common.Address, depositID uint64, amount sdkmath.Uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.precheck(asset); err != nil {
		return err
	}
	pos, ok := c.st.positions[depositID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPosition, depositID)
	}
	if pos.Balance.LT(amount) {
		return fmt.Errorf("%w: position %d holds %s, requested %s", ErrPositionTooSmall, depositID, pos.Balance, amount)
	}
	if err := c.asset.Transfer(c.addr, c.client, amount); err != nil {
		return fmt.Errorf("sim: pay client: %w", err)
	}
	pos.Balance = pos.Balance.Sub(amount)
	c.st.positions[depositID] = pos
	c.st.calls.PartialWithdrawals++
	return nil
}

// WithdrawFull closes the position and returns its balance plus yield.
func (c *Custodian) WithdrawFull(_ context.Context, asset common.Address, depositID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.precheck(asset); err != nil {
		return err
	}
	pos, ok := c.st.positions[depositID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPosition, depositID)
	}
	if c.yieldBps > 0 {
		yield, err := feemath.MulDiv(pos.Balance, sdkmath.NewUint(c.yieldBps), sdkmath.NewUint(feemath.BasisPointScale), feemath.Floor)
		if err != nil {
			return err
		}
		if !yield.IsZero() {
			if err := c.asset.Mint(c.addr, yield); err != nil {
				return fmt.Errorf("sim: mint yield: %w", err)
			}
			pos.Balance = pos.Balance.Add(yield)
		}
	}
	if err := c.asset.Transfer(c.addr, c.client, pos.Balance); err != nil {
		return fmt.Errorf("sim: pay client: %w", err)
	}
	delete(c.st.positions, depositID)
	c.st.calls.FullWithdrawals++
	return nil
}

// Accrue adds amount of yield to an open position.
func (c *Custodian) Accrue(depositID uint64, amount sdkmath.Uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.st.positions[depositID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPosition, depositID)
	}
	if err := c.asset.Mint(c.addr, amount); err != nil {
		return fmt.Errorf("sim: mint yield: %w", err)
	}
	pos.Balance = pos.Balance.Add(amount)
	c.st.positions[depositID] = pos
	return nil
}

// Balance returns the balance of a position.
func (c *Custodian) Balance(depositID uint64) (sdkmath.Uint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.st.positions[depositID]
	if !ok {
		return sdkmath.ZeroUint(), false
	}
	return pos.Balance, true
}

// Total returns the sum of all open position balances.
func (c *Custodian) Total() sdkmath.Uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := sdkmath.ZeroUint()
	for _, pos := range c.st.positions {
		total = total.Add(pos.Balance)
	}
	return total
}

// Positions lists open positions by id.
func (c *Custodian) Positions() []Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Position, 0, len(c.st.positions))
	for _, pos := range c.st.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Calls returns the call counters.
func (c *Custodian) Calls() CallCounts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.calls
}

// Snapshot captures positions and counters for rollback. A pending
// FailNext survives the restore.
func (c *Custodian) Snapshot() func() {
	c.mu.Lock()
	saved := c.st
	saved.positions = make(map[uint64]Position, len(c.st.positions))
	for id, pos := range c.st.positions {
		saved.positions[id] = pos
	}
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		fail := c.st.failNext
		c.st = saved
		c.st.failNext = fail
		c.mu.Unlock()
	}
}

func (c *Custodian) precheck(asset common.Address) error {
	if err := c.st.failNext; err != nil {
		c.st.failNext = nil
		return err
	}
	if asset != c.assetID {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, asset.Hex())
	}
	return nil
}
