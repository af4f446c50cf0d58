package server

import (
	"net"
	"os"

	"codeberg.org/mutker/backlightd/internal/errors"
)

const socketMode = 0o666

// Listen binds the control socket at path, replacing a stale socket file
// left by a previous run. Every local user may connect.
func Listen(path string) (net.Listener, error) {
	errFactory := errors.New()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errFactory.Wrap(ErrListen, err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, errFactory.Wrap(ErrListen, err)
	}

	if err := os.Chmod(path, socketMode); err != nil {
		listener.Close()
		return nil, errFactory.Wrap(ErrListen, err)
	}

	return listener, nil
}
