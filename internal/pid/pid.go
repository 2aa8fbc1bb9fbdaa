// Package pid guards against a second daemon instance via a PID file in
// the system temp directory.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"codeberg.org/mutker/hwmond/internal/errors"
)

const pidFile = "hwmond.pid"

// Write writes the current process ID to the PID file. A stale file left
// by a dead process is overwritten; a live owner means another instance
// is running.
func Write() error {
	path := filepath.Join(os.TempDir(), pidFile)

	if _, err := os.Stat(path); err == nil {
		raw, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(errors.ErrInternal, err)
		}

		owner, err := strconv.Atoi(string(raw))
		if err != nil {
			return errors.Wrap(errors.ErrInternal, err)
		}

		process, err := os.FindProcess(owner)
		if err != nil {
			return errors.Wrap(errors.ErrInternal, err)
		}

		if err := process.Signal(syscall.Signal(0)); err == nil {
			return errors.New(errors.ErrAlreadyRunning)
		}
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errors.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file.
func Remove() error {
	path := filepath.Join(os.TempDir(), pidFile)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return errors.Wrap(errors.ErrInternal, err)
	}

	return nil
}
