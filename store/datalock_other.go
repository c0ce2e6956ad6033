//go:build !unix

package store

import (
	"fmt"
	"os"
)

// Without flock the lock file only marks the directory as in use; bbolt's
// own file lock still guards the state database.
func tryLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("store: open lock file: %w", err)
	}
	return f, nil
}

func releaseLock(f *os.File) {
	_ = f.Close()
}
