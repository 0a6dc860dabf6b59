package store

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// SaveLock guards a vault's on-disk store directory against concurrent
// writers — two `temoa reindex` invocations against the same vault, or a
// reindex racing the file watcher's incremental update. One process holds
// the lock for the duration of a save; others block until it's released.
type SaveLock struct {
	fl *flock.Flock
}

// NewSaveLock creates a lock file at <dir>/.save.lock, creating dir if
// needed.
func NewSaveLock(dir string) (*SaveLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &SaveLock{fl: flock.New(filepath.Join(dir, ".save.lock"))}, nil
}

// Lock blocks until the lock is acquired.
func (l *SaveLock) Lock() error {
	return l.fl.Lock()
}

// Unlock releases the lock.
func (l *SaveLock) Unlock() error {
	return l.fl.Unlock()
}
