// Package access implements the capability tables that gate governance,
// maintainer and settler operations. A table has a single owner and any
// number of role sets; it is mutated only through its methods.
package access

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Role names a set of authorized identifiers.
type Role string

const (
	// RoleMaintainer may trigger allocation of idle vault assets.
	RoleMaintainer Role = "maintainer"

	// RoleSettler may close a rewards cycle on the vault.
	RoleSettler Role = "settler"
)

// Table is a capability table: one owner plus role membership sets.
type Table struct {
	mu      sync.RWMutex
	owner   common.Address
	members map[Role]map[common.Address]struct{}
}

// NewTable creates a table owned by owner.
func NewTable(owner common.Address) (*Table, error) {
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: owner", ErrZeroAddress)
	}
	return &Table{
		owner:   owner,
		members: make(map[Role]map[common.Address]struct{}),
	}, nil
}

// Owner returns the governance owner.
func (t *Table) Owner() common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.owner
}

// RequireOwner returns ErrNotOwner unless caller is the owner.
func (t *Table) RequireOwner(caller common.Address) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if caller != t.owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller.Hex())
	}
	return nil
}

// Has reports whether addr holds role.
func (t *Table) Has(role Role, addr common.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.members[role][addr]
	return ok
}

// Require returns ErrMissingRole unless caller holds role.
func (t *Table) Require(role Role, caller common.Address) error {
	if !t.Has(role, caller) {
		return fmt.Errorf("%w: %s lacks %q", ErrMissingRole, caller.Hex(), role)
	}
	return nil
}

// Grant adds addr to role. Only the owner may grant.
func (t *Table) Grant(caller common.Address, role Role, addr common.Address) error {
	if err := t.RequireOwner(caller); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: %s member", ErrZeroAddress, role)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.members[role]
	if !ok {
		set = make(map[common.Address]struct{})
		t.members[role] = set
	}
	if _, exists := set[addr]; exists {
		return fmt.Errorf("%w: %s %q", ErrAlreadyMember, addr.Hex(), role)
	}
	set[addr] = struct{}{}
	return nil
}

// Revoke removes addr from role. Only the owner may revoke.
func (t *Table) Revoke(caller common.Address, role Role, addr common.Address) error {
	if err := t.RequireOwner(caller); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.members[role][addr]; !exists {
		return fmt.Errorf("%w: %s %q", ErrNotMember, addr.Hex(), role)
	}
	delete(t.members[role], addr)
	return nil
}

// TransferOwnership hands the table to a new owner.
func (t *Table) TransferOwnership(caller, newOwner common.Address) error {
	if err := t.RequireOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: new owner", ErrZeroAddress)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.owner = newOwner
	return nil
}

// Members returns the addresses holding role, sorted.
func (t *Table) Members(role Role) []common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]common.Address, 0, len(t.members[role]))
	for addr := range t.members[role] {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// Snapshot captures the table so a failed operation can restore it.
func (t *Table) Snapshot() func() {
	t.mu.RLock()
	owner := t.owner
	members := make(map[Role]map[common.Address]struct{}, len(t.members))
	for role, set := range t.members {
		cp := make(map[common.Address]struct{}, len(set))
		for addr := range set {
			cp[addr] = struct{}{}
		}
		members[role] = cp
	}
	t.mu.RUnlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.owner = owner
		t.members = members
	}
}
