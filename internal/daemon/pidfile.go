//go:build unix

package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

type PIDFile struct {
	path string
}

func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Write records the current PID, replacing a stale file. Symlinks are
// refused.
func (p *PIDFile) Write() error {
	if info, err := os.Lstat(p.path); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("PID file %s is a symlink", p.path)
		}
		if err := os.Remove(p.path); err != nil {
			return fmt.Errorf("failed to remove stale PID file: %w", err)
		}
	}

	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer f.Close()

	_, err = f.WriteString(strconv.Itoa(os.Getpid()))
	return err
}

// Read returns 0 when there is no PID file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return 0, nil
	}

	pid, err := strconv.Atoi(content)
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID: %d", pid)
	}

	return pid, nil
}

func (p *PIDFile) IsProcessAlive() bool {
	pid, err := p.Read()
	if err != nil || pid == 0 {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	return syscall.Kill(pid, 0) == nil
}

func (p *PIDFile) Remove() error {
	if info, err := os.Lstat(p.path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to remove PID file: is a symlink")
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (p *PIDFile) Path() string {
	return p.path
}
