// Package pid guards against two daemons sharing one control socket.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/backlightd/internal/errors"
)

// Write records the current process ID at path. It fails with
// ErrAlreadyRunning when the file names a process that is still alive; a
// stale file is overwritten.
func Write(path string) error {
	errFactory := errors.New()

	if content, err := os.ReadFile(path); err == nil {
		if owner, err := strconv.Atoi(strings.TrimSpace(string(content))); err == nil && alive(owner) {
			return errFactory.WithData(errors.ErrAlreadyRunning, owner)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func alive(pid int) bool {
	if pid <= 0 || pid == os.Getpid() {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))

	return err == nil || errors.Is(err, syscall.EPERM)
}

// Remove deletes the PID file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}
