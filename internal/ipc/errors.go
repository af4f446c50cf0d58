package ipc

import "codeberg.org/mutker/backlightd/internal/errors"

const (
	ErrProtocol           = errors.ErrProtocol
	ErrUnknownCommand     = errors.ErrorCode("ipc_unknown_command")
	ErrPercentOutOfRange  = errors.ErrorCode("ipc_percent_out_of_range")
	ErrUnknownMode        = errors.ErrorCode("ipc_unknown_mode")
	ErrUnexpectedResponse = errors.ErrorCode("ipc_unexpected_response")
	ErrConnect            = errors.ErrorCode("ipc_connect_failed")
)
