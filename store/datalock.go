package store

import (
	"errors"
	"os"
	"path/filepath"
)

// LockFileName is the name of the lock file inside the data directory.
const LockFileName = "btcvault.lock"

// ErrDataDirLocked indicates another process holds the data directory.
var ErrDataDirLocked = errors.New("store: data directory is locked by another process")

// DataDirLock is an exclusive hold on a data directory. Only one daemon
// may run over a given set of stores.
type DataDirLock struct {
	f *os.File
}

// LockDataDir takes the data directory lock without blocking.
func LockDataDir(dir string) (*DataDirLock, error) {
	if dir == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	f, err := tryLock(filepath.Join(dir, LockFileName))
	if err != nil {
		return nil, err
	}
	return &DataDirLock{f: f}, nil
}

// Release drops the lock. It is safe to call more than once.
func (l *DataDirLock) Release() {
	if l == nil || l.f == nil {
		return
	}
	releaseLock(l.f)
	l.f = nil
}
