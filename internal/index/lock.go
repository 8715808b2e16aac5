package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	ierrors "github.com/Aman-CERP/docindex/internal/errors"
)

// DefaultLockDir returns the directory holding run locks (~/.docindex/locks/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLockDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docindex", "locks")
	}
	return filepath.Join(home, ".docindex", "locks")
}

// LockPath returns the lock file for a documents directory. The name is
// derived from the absolute path so the documents directory itself is never
// written to.
func LockPath(lockDir, docsDir string) string {
	if abs, err := filepath.Abs(docsDir); err == nil {
		docsDir = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(docsDir)))
	return filepath.Join(lockDir, hex.EncodeToString(sum[:8])+".lock")
}

// RunLock is a cross-process, non-blocking lock on a documents directory.
// Two runs over the same directory would insert every record twice.
type RunLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewRunLock creates a lock for docsDir with its file under lockDir. An empty
// lockDir means DefaultLockDir.
func NewRunLock(lockDir, docsDir string) *RunLock {
	if lockDir == "" {
		lockDir = DefaultLockDir()
	}
	lockPath := LockPath(lockDir, docsDir)
	return &RunLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Acquire takes the lock without waiting. A lock held by another run
// yields an ErrCodeLockHeld error; any other failure is internal.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return ierrors.InternalError("failed to create lock directory", err).
			WithDetail("lock", l.path)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return ierrors.InternalError("failed to acquire run lock", err).
			WithDetail("lock", l.path)
	}
	if !acquired {
		return ierrors.LockHeldError(l.path)
	}

	l.locked = true
	return nil
}

// Release frees the lock. It is safe to call on an unlocked RunLock.
func (l *RunLock) Release() error {
	if !l.locked {
		return nil
	}

	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *RunLock) Path() string {
	return l.path
}

// IsLocked reports whether this RunLock holds the lock.
func (l *RunLock) IsLocked() bool {
	return l.locked
}
