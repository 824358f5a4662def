package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/mpgirro/hemin/internal/errors"
)

// dirLock guards an on-disk index against a second writer process.
// The lock file sits next to the index directory, not inside it, so a
// corrupt index can be cleared without touching the lock.
type dirLock struct {
	flock  *flock.Flock
	locked bool
}

func newDirLock(indexPath string) *dirLock {
	return &dirLock{flock: flock.New(filepath.Clean(indexPath) + ".lock")}
}

// acquire takes the lock without blocking. A lock held elsewhere yields
// ErrCodeIndexLocked.
func (l *dirLock) acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	ok, err := l.flock.TryLock()
	if err != nil {
		return errors.IOError(errors.ErrCodeIndexLocked, "failed to lock index", err)
	}
	if !ok {
		return errors.IOError(errors.ErrCodeIndexLocked, "index is in use by another process", nil).
			WithDetail("lock", l.flock.Path()).
			WithSuggestion("Stop the other hemin process or point index.path elsewhere")
	}
	l.locked = true
	return nil
}

// release is a no-op when the lock is not held.
func (l *dirLock) release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
