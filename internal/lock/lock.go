// Package lock provides the single-instance file lock the daemon holds
// while running, so a second `segdl serve` invocation against the same
// state directory fails fast instead of corrupting the task store.
// Adapted from cmd/lock.go in the teacher (moved out of cmd so the cmd
// package and any future daemon entrypoint share one implementation).
package lock

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/nahidn4p/segdl/internal/config"
)

// InstanceLock wraps the advisory file lock mechanism.
type InstanceLock struct {
	flock *flock.Flock
	path  string
}

// Acquire attempts to take the single-instance lock in the state
// directory. It returns (true, nil) if this call became the holder,
// (false, nil) if another process already holds it, and a non-nil error
// only if the lock file itself could not be accessed.
func Acquire() (*InstanceLock, bool, error) {
	if err := config.EnsureDirs(); err != nil {
		return nil, false, fmt.Errorf("ensure config dirs: %w", err)
	}

	lockPath := filepath.Join(config.GetSurgeDir(), "segdl.lock")
	fileLock := flock.New(lockPath)

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("try lock: %w", err)
	}
	if !locked {
		return nil, false, nil
	}

	return &InstanceLock{flock: fileLock, path: lockPath}, true, nil
}

// Release unlocks the lock. Calling Release on a nil receiver is a no-op,
// so callers can defer it unconditionally after a failed Acquire.
func (l *InstanceLock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	return l.flock.Unlock()
}
