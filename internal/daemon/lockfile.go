//go:build unix

package daemon

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrLockHeld means another process owns the lock.
var ErrLockHeld = errors.New("lock held by another process")

// LockFile is an advisory flock(2) lock. The kernel drops it when the
// holder exits, so a crashed daemon never blocks the next start.
type LockFile struct {
	path string
	file *os.File
}

func NewLockFile(path string) *LockFile {
	return &LockFile{path: path}
}

func (l *LockFile) Acquire() error {
	if l.file != nil {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return ErrLockHeld
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.file = f
	return nil
}

// Release unlocks but keeps the file, so every daemon locks the same inode.
func (l *LockFile) Release() error {
	if l.file == nil {
		return nil
	}

	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *LockFile) IsLocked() bool {
	return l.file != nil
}
