//go:build unix

package daemon

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"time"
)

var ErrAlreadyRunning = errors.New("daemon already running")

// Lifecycle guards a base directory so only one daemon serves it.
type Lifecycle struct {
	lockFile   *LockFile
	pidFile    *PIDFile
	socketPath string
}

func NewLifecycle(baseDir, socketPath string) *Lifecycle {
	return &Lifecycle{
		lockFile:   NewLockFile(filepath.Join(baseDir, "daemon.lock")),
		pidFile:    NewPIDFile(filepath.Join(baseDir, "daemon.pid")),
		socketPath: socketPath,
	}
}

// Acquire takes the instance lock and records our PID. It fails with
// ErrAlreadyRunning when another daemon holds the lock or still answers on
// the socket.
func (lc *Lifecycle) Acquire() error {
	if err := lc.lockFile.Acquire(); err != nil {
		if errors.Is(err, ErrLockHeld) {
			return fmt.Errorf("%w: lock held", ErrAlreadyRunning)
		}
		return err
	}

	if lc.isSocketResponsive() {
		lc.lockFile.Release()
		return fmt.Errorf("%w: %s is answering", ErrAlreadyRunning, lc.socketPath)
	}

	if err := lc.pidFile.Write(); err != nil {
		lc.lockFile.Release()
		return err
	}
	return nil
}

func (lc *Lifecycle) isSocketResponsive() bool {
	conn, err := net.DialTimeout("unix", lc.socketPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (lc *Lifecycle) Release() {
	lc.pidFile.Remove()
	lc.lockFile.Release()
}

func (lc *Lifecycle) PIDFile() *PIDFile {
	return lc.pidFile
}
