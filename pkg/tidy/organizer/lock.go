package organizer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
	"github.com/jamesainslie/tidy/pkg/tidy/logging"
)

// LockPath returns the lock file used for target inside dir.
func LockPath(dir, target string) string {
	return filepath.Join(dir, fmt.Sprintf("%016x.lock", xxhash.Sum64String(filepath.Clean(target))))
}

// acquireLock takes the advisory lock for target without blocking and
// returns its release function.
func acquireLock(dir, target string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	path := LockPath(dir, target)
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, target)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			logging.Get("organizer").Warn("failed to release lock", "path", path, "error", err)
		}
	}, nil
}
