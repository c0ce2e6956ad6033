package store

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bitfsorg/btcvault-go/intake"
)

var (
	// ErrTxNotFound indicates no archived transaction exists for the key.
	ErrTxNotFound = errors.New("store: funding transaction not found")

	// ErrEmptyTx indicates an attempt to archive an empty transaction.
	ErrEmptyTx = errors.New("store: funding transaction is empty")

	// ErrInvalidBaseDir indicates the archive directory path is empty.
	ErrInvalidBaseDir = errors.New("store: invalid archive directory")
)

// TxArchive keeps the raw funding transaction of every initialized deposit
// on the local filesystem, one file per funding key:
// {baseDir}/{hex(key[:1])}/{hex(key)}.
type TxArchive struct {
	baseDir string
	mu      sync.RWMutex
}

// NewTxArchive creates the archive, creating baseDir if needed.
func NewTxArchive(baseDir string) (*TxArchive, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create archive directory: %w", err)
	}
	return &TxArchive{baseDir: baseDir}, nil
}

func (a *TxArchive) path(key intake.FundingKey) string {
	name := hex.EncodeToString(key[:])
	return filepath.Join(a.baseDir, name[:2], name)
}

// Put archives rawTx under key. The file is written to a temporary name
// and renamed so readers never see a partial transaction.
func (a *TxArchive) Put(key intake.FundingKey, rawTx []byte) error {
	if len(rawTx) == 0 {
		return ErrEmptyTx
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("store: create shard: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, rawTx, 0600); err != nil {
		return fmt.Errorf("store: write funding tx: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("store: commit funding tx: %w", err)
	}
	return nil
}

// Get returns the archived transaction for key.
func (a *TxArchive) Get(key intake.FundingKey) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, err := os.ReadFile(a.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTxNotFound, key)
		}
		return nil, fmt.Errorf("store: read funding tx: %w", err)
	}
	return data, nil
}

// Has reports whether a transaction is archived for key.
func (a *TxArchive) Has(key intake.FundingKey) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, err := os.Stat(a.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: stat funding tx: %w", err)
	}
	return true, nil
}

// Delete removes the archived transaction for key.
func (a *TxArchive) Delete(key intake.FundingKey) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.Remove(a.path(key)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrTxNotFound, key)
		}
		return fmt.Errorf("store: delete funding tx: %w", err)
	}
	return nil
}

// List returns every archived key in ascending order.
func (a *TxArchive) List() ([]intake.FundingKey, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	shards, err := os.ReadDir(a.baseDir)
	if err != nil {
		return nil, fmt.Errorf("store: list archive: %w", err)
	}
	var keys []intake.FundingKey
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(a.baseDir, shard.Name()))
		if err != nil {
			return nil, fmt.Errorf("store: list shard %s: %w", shard.Name(), err)
		}
		for _, e := range entries {
			b, err := hex.DecodeString(e.Name())
			if err != nil || len(b) != len(intake.FundingKey{}) {
				continue
			}
			var key intake.FundingKey
			copy(key[:], b)
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Hex() < keys[j].Hex() })
	return keys, nil
}
