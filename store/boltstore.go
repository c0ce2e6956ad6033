// Package store persists deposit records and allocation state in bbolt.
// Both stores keep an undo log from the most recent Checkpoint so an
// operation that fails part-way can put the database back.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/btcvault-go/allocator"
	"github.com/bitfsorg/btcvault-go/intake"
)

var (
	bucketDeposits   = []byte("deposits")
	bucketAllocation = []byte("allocation")

	allocationKey = []byte("state")
)

// BoltStore wraps a bbolt database holding every persisted ledger.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDeposits, bucketAllocation} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("store: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Deposits returns the deposit record store backed by this database.
func (s *BoltStore) Deposits() *DepositStore {
	return &DepositStore{db: s.db, undo: make(map[intake.FundingKey][]byte)}
}

// Allocation returns the allocation state store backed by this database.
func (s *BoltStore) Allocation() *AllocationStore {
	return &AllocationStore{db: s.db}
}

// ---------------------------------------------------------------------------
// DepositStore implements intake.RecordStore.
// ---------------------------------------------------------------------------

// DepositStore persists deposit records keyed by funding key.
type DepositStore struct {
	db *bbolt.DB

	mu   sync.Mutex
	undo map[intake.FundingKey][]byte // prior value, nil if absent
}

// Compile-time interface check.
var _ intake.RecordStore = (*DepositStore)(nil)

// Get retrieves the record for key.
func (s *DepositStore) Get(key intake.FundingKey) (*intake.DepositRecord, error) {
	var rec intake.DepositRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDeposits).Get(key[:])
		if data == nil {
			return fmt.Errorf("%w: %s", intake.ErrRecordNotFound, key.Hex())
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("%w: deposit %s: %w", ErrCorrupt, key.Hex(), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put stores rec, replacing any earlier version.
func (s *DepositStore) Put(rec *intake.DepositRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode deposit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDeposits)
		if _, seen := s.undo[rec.Key]; !seen {
			s.undo[rec.Key] = cloneBytes(b.Get(rec.Key[:]))
		}
		if err := b.Put(rec.Key[:], data); err != nil {
			return fmt.Errorf("store: put deposit: %w", err)
		}
		return nil
	})
}

// List returns every record in key order.
func (s *DepositStore) List() ([]*intake.DepositRecord, error) {
	var recs []*intake.DepositRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDeposits).ForEach(func(k, v []byte) error {
			var rec intake.DepositRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("%w: deposit %x: %w", ErrCorrupt, k, err)
			}
			recs = append(recs, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: list deposits: %w", err)
	}
	return recs, nil
}

// Count returns the number of stored records.
func (s *DepositStore) Count() (int, error) {
	var count int
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(bucketDeposits).Stats().KeyN
		return nil
	})
	return count, err
}

// Checkpoint starts a fresh undo log. The returned function rewrites every
// key touched since then to its prior value.
func (s *DepositStore) Checkpoint() func() error {
	s.mu.Lock()
	s.undo = make(map[intake.FundingKey][]byte)
	s.mu.Unlock()

	return func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		undo := s.undo
		s.undo = make(map[intake.FundingKey][]byte)
		err := s.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(bucketDeposits)
			for key, prior := range undo {
				k := key
				if prior == nil {
					if err := b.Delete(k[:]); err != nil {
						return err
					}
					continue
				}
				if err := b.Put(k[:], prior); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("store: restore %d deposit records: %w", len(undo), err)
		}
		return nil
	}
}

// ---------------------------------------------------------------------------
// AllocationStore implements allocator.StateStore.
// ---------------------------------------------------------------------------

// AllocationStore persists the single allocation state value.
type AllocationStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ allocator.StateStore = (*AllocationStore)(nil)

// Load returns the saved state, or the initial state when none is saved.
func (s *AllocationStore) Load() (allocator.State, error) {
	state := allocator.NewState()
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAllocation).Get(allocationKey)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &state); err != nil {
			return fmt.Errorf("%w: allocation: %w", ErrCorrupt, err)
		}
		return nil
	})
	if err != nil {
		return allocator.NewState(), err
	}
	return state, nil
}

// Save stores the state.
func (s *AllocationStore) Save(state allocator.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: encode allocation: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketAllocation).Put(allocationKey, data); err != nil {
			return fmt.Errorf("store: put allocation: %w", err)
		}
		return nil
	})
}

// Checkpoint captures the stored value. The returned function writes it back.
func (s *AllocationStore) Checkpoint() func() error {
	var prior []byte
	readErr := s.db.View(func(tx *bbolt.Tx) error {
		prior = cloneBytes(tx.Bucket(bucketAllocation).Get(allocationKey))
		return nil
	})
	return func() error {
		if readErr != nil {
			return fmt.Errorf("store: allocation checkpoint unreadable: %w", readErr)
		}
		err := s.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(bucketAllocation)
			if prior == nil {
				return b.Delete(allocationKey)
			}
			return b.Put(allocationKey, prior)
		})
		if err != nil {
			return fmt.Errorf("store: restore allocation state: %w", err)
		}
		return nil
	}
}

// cloneBytes copies a bbolt value, which is only valid inside its transaction.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, intake.ErrRecordNotFound)
}
