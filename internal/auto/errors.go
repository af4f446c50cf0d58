package auto

import "codeberg.org/mutker/backlightd/internal/errors"

const (
	ErrLocationFailed = errors.ErrorCode("auto_location_failed")
	ErrInvalidConfig  = errors.ErrInvalidConfig
)
