package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// Lock is an advisory, cross-process lock on the research archive
type Lock struct {
	path  string
	flock *flock.Flock
}

// Acquire takes the lock at path without blocking. It returns
// domain.ErrLocked when another process holds it.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrLocked)
	}
	return &Lock{path: path, flock: fl}, nil
}

// Path returns the lock file location
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks; the lock file itself is left in place
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
