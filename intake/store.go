package intake

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
)

// RecordStore persists deposit records keyed by funding key.
type RecordStore interface {
	// Get returns ErrRecordNotFound when the key has no record.
	Get(key FundingKey) (*DepositRecord, error)
	Put(rec *DepositRecord) error
	// List returns every record ordered by key.
	List() ([]*DepositRecord, error)
}

// MemRecordStore is an in-memory RecordStore.
type MemRecordStore struct {
	mu      sync.RWMutex
	records map[FundingKey]*DepositRecord
}

var _ RecordStore = (*MemRecordStore)(nil)

// NewMemRecordStore creates an empty store.
func NewMemRecordStore() *MemRecordStore {
	return &MemRecordStore{records: make(map[FundingKey]*DepositRecord)}
}

func (m *MemRecordStore) Get(key FundingKey) (*DepositRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, key.Hex())
	}
	return rec.Clone(), nil
}

func (m *MemRecordStore) Put(rec *DepositRecord) error {
	if rec == nil {
		return fmt.Errorf("intake: nil record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key] = rec.Clone()
	return nil
}

func (m *MemRecordStore) List() ([]*DepositRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*DepositRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Key[:], out[j].Key[:]) < 0
	})
	return out, nil
}

// Snapshot captures the store contents for rollback.
func (m *MemRecordStore) Snapshot() func() {
	m.mu.RLock()
	saved := make(map[FundingKey]*DepositRecord, len(m.records))
	for k, v := range m.records {
		saved[k] = v
	}
	m.mu.RUnlock()
	return func() {
		m.mu.Lock()
		m.records = saved
		m.mu.Unlock()
	}
}
