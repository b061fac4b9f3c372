package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gitmoveerrors "gitmove.dev/gitmove/internal/errors"
)

// LockFileName is the advisory lock taken inside the git directory while a
// sync mutates the repository.
const LockFileName = "gitmove.lock"

const lockPollInterval = 50 * time.Millisecond

// FileLock is an exclusive advisory lock on a file
type FileLock struct {
	file *os.File
}

// AcquireFileLock takes an exclusive lock on path, polling until timeout. A
// lock held elsewhere past the timeout is reported as a TransientGitError.
func AcquireFileLock(ctx context.Context, path string, timeout time.Duration) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := tryLock(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to lock %s: %w", path, err)
		}
		if ok {
			return &FileLock{file: f}, nil
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, gitmoveerrors.NewTransientGitError("acquire repository lock", fmt.Errorf("%s is held by another process: %w", path, ctx.Err()))
		case <-ticker.C:
		}
	}
}

// Unlock releases the lock
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	err := unlock(l.file)
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	l.file = nil
	return err
}

// Lock takes the repository lock in the git directory
func (b *realBackend) Lock(ctx context.Context, timeout time.Duration) (Lock, error) {
	return AcquireFileLock(ctx, filepath.Join(b.gitDir, LockFileName), timeout)
}
