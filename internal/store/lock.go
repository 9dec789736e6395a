package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// TierLock is a cross-process exclusive lock over one tier's directory,
// enforcing the single-writer-per-tier discipline across process
// boundaries (in-process access is serialized separately by each store's
// sync.RWMutex). It guards a tier's data directory rather than a model
// download cache.
type TierLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewTierLock creates a lock file at <dir>/.tier.lock.
func NewTierLock(dir string) *TierLock {
	lockPath := filepath.Join(dir, ".tier.lock")
	return &TierLock{path: lockPath, flock: flock.New(lockPath)}
}

// Lock acquires the exclusive lock, blocking until it is available.
func (l *TierLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("store: create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("store: acquire tier lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *TierLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("store: create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("store: acquire tier lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an already-unlocked TierLock.
func (l *TierLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("store: release tier lock: %w", err)
	}
	l.locked = false
	return nil
}

// IsLocked reports whether this TierLock currently holds the lock.
func (l *TierLock) IsLocked() bool {
	return l.locked
}
