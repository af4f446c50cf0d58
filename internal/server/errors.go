package server

import "codeberg.org/mutker/backlightd/internal/errors"

const (
	ErrListen     = errors.ErrorCode("server_listen_failed")
	ErrUnexpected = errors.ErrorCode("server_unexpected_command")
	ErrLoopExited = errors.ErrLoopExited
)
