package allocator

import (
	"sync"

	sdkmath "cosmossdk.io/math"
)

// State is the allocation ledger's persistent state. DepositID never resets;
// TrackedBalance is principal placed through Allocate net of withdrawals.
type State struct {
	DepositID      uint64       `json:"deposit_id"`
	TrackedBalance sdkmath.Uint `json:"tracked_balance"`
}

// NewState returns the state before the first allocation.
func NewState() State {
	return State{TrackedBalance: sdkmath.ZeroUint()}
}

// StateStore persists the allocation state.
type StateStore interface {
	// Load returns NewState() when nothing has been saved.
	Load() (State, error)
	Save(State) error
}

// MemStateStore is an in-memory StateStore.
type MemStateStore struct {
	mu    sync.RWMutex
	state State
}

var _ StateStore = (*MemStateStore)(nil)

// NewMemStateStore creates an empty store.
func NewMemStateStore() *MemStateStore {
	return &MemStateStore{state: NewState()}
}

func (m *MemStateStore) Load() (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, nil
}

func (m *MemStateStore) Save(s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	return nil
}

// Snapshot captures the stored state for rollback.
func (m *MemStateStore) Snapshot() func() {
	m.mu.RLock()
	saved := m.state
	m.mu.RUnlock()
	return func() {
		m.mu.Lock()
		m.state = saved
		m.mu.Unlock()
	}
}
