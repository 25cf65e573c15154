// Package pidfile prevents two tracker instances from fighting over the
// same screen region and state file.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile marks a live tracker instance on disk.
type PIDFile struct {
	path string
	pid  int
}

// Acquire claims the PID file. A file left by a dead process is taken over;
// a file owned by a live process is an error.
func Acquire(path string) (*PIDFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create pid directory: %w", err)
	}

	if data, err := os.ReadFile(path); err == nil {
		if existing, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			if processAlive(existing) {
				return nil, fmt.Errorf("another tracker is already running (pid %d)", existing)
			}
			if err := os.Remove(path); err != nil {
				return nil, fmt.Errorf("remove stale pid file: %w", err)
			}
		}
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0o644); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &PIDFile{path: path, pid: pid}, nil
}

// Release removes the PID file if this process still owns it.
func (p *PIDFile) Release() error {
	if p == nil {
		return nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil
	}
	if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid == p.pid {
		return os.Remove(p.path)
	}
	return nil
}

// processAlive probes a PID with signal 0.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return err == syscall.EPERM
}
