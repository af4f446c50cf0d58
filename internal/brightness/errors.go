package brightness

import "codeberg.org/mutker/backlightd/internal/errors"

const (
	ErrBatchFailed    = errors.ErrorCode("brightness_batch_failed")
	ErrInvalidPercent = errors.ErrInvalidArgument
	ErrNotSupported   = errors.ErrNotSupported
)
