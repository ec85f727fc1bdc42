package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// ErrLockTimeout is returned when the advisory lock could not be
// acquired before the deadline.
var ErrLockTimeout = errors.New("could not acquire project lock: another frame process may be writing")

// DefaultLockTimeout bounds how long writers wait for the lock.
const DefaultLockTimeout = 5 * time.Second

// FileLock is an advisory flock on frame/.lock, serializing writes
// between concurrent frame processes.
type FileLock struct {
	file  *os.File
	path  string
	Token string
}

// AcquireLock polls for an exclusive lock on frame/.lock until timeout.
// The lock file records the holder's pid and a fresh token for
// diagnostics.
func AcquireLock(frameDir string, timeout time.Duration) (*FileLock, error) {
	lockPath := filepath.Join(frameDir, ".lock")
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create lock file %s: %w", lockPath, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			file.Close()
			return nil, fmt.Errorf("%w (%s)", ErrLockTimeout, lockPath)
		}
		time.Sleep(10 * time.Millisecond)
	}

	token := uuid.NewString()
	file.Truncate(0)
	fmt.Fprintf(file, "pid=%d token=%s\n", os.Getpid(), token)
	file.Sync()

	return &FileLock{file: file, path: lockPath, Token: token}, nil
}

// AcquireLockDefault acquires with the default timeout.
func AcquireLockDefault(frameDir string) (*FileLock, error) {
	return AcquireLock(frameDir, DefaultLockTimeout)
}

// Release unlocks and removes the lock file. Safe to call once.
func (l *FileLock) Release() {
	if l.file == nil {
		return
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	l.file = nil
	os.Remove(l.path)
}
