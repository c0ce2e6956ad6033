// Package token is a fungible balance book. One Ledger holds the bridged
// asset balances of every account; another holds vault shares.
package token

import (
	"fmt"
	"sort"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/feemath"
)

// Ledger tracks balances, allowances and total supply of one token.
type Ledger struct {
	mu         sync.RWMutex
	symbol     string
	supply     sdkmath.Uint
	balances   map[common.Address]sdkmath.Uint
	allowances map[common.Address]map[common.Address]sdkmath.Uint
}

// NewLedger creates an empty ledger.
func NewLedger(symbol string) *Ledger {
	return &Ledger{
		symbol:     symbol,
		supply:     sdkmath.ZeroUint(),
		balances:   make(map[common.Address]sdkmath.Uint),
		allowances: make(map[common.Address]map[common.Address]sdkmath.Uint),
	}
}

// Symbol returns the ticker the ledger was created with.
func (l *Ledger) Symbol() string { return l.symbol }

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() sdkmath.Uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}

// BalanceOf returns the balance of addr.
func (l *Ledger) BalanceOf(addr common.Address) sdkmath.Uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceOf(addr)
}

func (l *Ledger) balanceOf(addr common.Address) sdkmath.Uint {
	if b, ok := l.balances[addr]; ok {
		return b
	}
	return sdkmath.ZeroUint()
}

// Allowance returns how much spender may move on behalf of owner.
func (l *Ledger) Allowance(owner, spender common.Address) sdkmath.Uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowance(owner, spender)
}

func (l *Ledger) allowance(owner, spender common.Address) sdkmath.Uint {
	if a, ok := l.allowances[owner][spender]; ok {
		return a
	}
	return sdkmath.ZeroUint()
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(from, to common.Address, amount sdkmath.Uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(from, to, amount)
}

func (l *Ledger) transfer(from, to common.Address, amount sdkmath.Uint) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return fmt.Errorf("%w: %s transfer", ErrZeroAddress, l.symbol)
	}
	bal := l.balanceOf(from)
	if bal.LT(amount) {
		return fmt.Errorf("%w: %s %s has %s, needs %s", ErrInsufficientBalance, l.symbol, from.Hex(), bal, amount)
	}
	l.setBalance(from, bal.Sub(amount))
	l.setBalance(to, l.balanceOf(to).Add(amount))
	return nil
}

// Approve sets the allowance of spender over owner's balance. An allowance of
// feemath.MaxUint256 is unlimited and is never decremented.
func (l *Ledger) Approve(owner, spender common.Address, amount sdkmath.Uint) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return fmt.Errorf("%w: %s approval", ErrZeroAddress, l.symbol)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount.IsZero() {
		delete(l.allowances[owner], spender)
		return nil
	}
	set, ok := l.allowances[owner]
	if !ok {
		set = make(map[common.Address]sdkmath.Uint)
		l.allowances[owner] = set
	}
	set[spender] = amount
	return nil
}

// TransferFrom moves amount from one account to another using spender's allowance.
func (l *Ledger) TransferFrom(spender, from, to common.Address, amount sdkmath.Uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.spendAllowance(from, spender, amount); err != nil {
		return err
	}
	return l.transfer(from, to, amount)
}

// SpendAllowance consumes amount of spender's allowance over owner without
// moving tokens. Owners spending their own balance need no allowance.
func (l *Ledger) SpendAllowance(owner, spender common.Address, amount sdkmath.Uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spendAllowance(owner, spender, amount)
}

func (l *Ledger) spendAllowance(owner, spender common.Address, amount sdkmath.Uint) error {
	if owner == spender {
		return nil
	}
	current := l.allowance(owner, spender)
	if feemath.IsMax(current) {
		return nil
	}
	if current.LT(amount) {
		return fmt.Errorf("%w: %s %s may spend %s of %s, needs %s",
			ErrInsufficientAllowance, l.symbol, spender.Hex(), current, owner.Hex(), amount)
	}
	remaining := current.Sub(amount)
	if remaining.IsZero() {
		delete(l.allowances[owner], spender)
	} else {
		l.allowances[owner][spender] = remaining
	}
	return nil
}

// Mint creates amount new tokens owned by to.
func (l *Ledger) Mint(to common.Address, amount sdkmath.Uint) error {
	if to == (common.Address{}) {
		return fmt.Errorf("%w: %s mint", ErrZeroAddress, l.symbol)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	supply, err := feemath.CheckedAdd(l.supply, amount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSupplyOverflow, err)
	}
	l.supply = supply
	l.setBalance(to, l.balanceOf(to).Add(amount))
	return nil
}

// Burn destroys amount tokens owned by from.
func (l *Ledger) Burn(from common.Address, amount sdkmath.Uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balanceOf(from)
	if bal.LT(amount) {
		return fmt.Errorf("%w: %s burn from %s has %s, needs %s", ErrInsufficientBalance, l.symbol, from.Hex(), bal, amount)
	}
	l.setBalance(from, bal.Sub(amount))
	l.supply = l.supply.Sub(amount)
	return nil
}

func (l *Ledger) setBalance(addr common.Address, amount sdkmath.Uint) {
	if amount.IsZero() {
		delete(l.balances, addr)
		return
	}
	l.balances[addr] = amount
}

// Holder is one non-zero balance.
type Holder struct {
	Address common.Address
	Balance sdkmath.Uint
}

// Holders returns every non-zero balance ordered by address.
func (l *Ledger) Holders() []Holder {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Holder, 0, len(l.balances))
	for addr, bal := range l.balances {
		out = append(out, Holder{Address: addr, Balance: bal})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.Cmp(out[j].Address) < 0 })
	return out
}

// Snapshot captures every balance and allowance. The returned function puts
// them back.
func (l *Ledger) Snapshot() func() {
	l.mu.RLock()
	supply := l.supply
	balances := make(map[common.Address]sdkmath.Uint, len(l.balances))
	for k, v := range l.balances {
		balances[k] = v
	}
	allowances := make(map[common.Address]map[common.Address]sdkmath.Uint, len(l.allowances))
	for owner, set := range l.allowances {
		cp := make(map[common.Address]sdkmath.Uint, len(set))
		for spender, v := range set {
			cp[spender] = v
		}
		allowances[owner] = cp
	}
	l.mu.RUnlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.supply = supply
		l.balances = balances
		l.allowances = allowances
	}
}
