package device

import "codeberg.org/mutker/backlightd/internal/errors"

const (
	ErrDevice          = errors.ErrDevice
	ErrNotSupported    = errors.ErrNotSupported
	ErrInvalidPercent  = errors.ErrorCode("device_invalid_percent")
	ErrZeroMaximum     = errors.ErrorCode("device_zero_maximum")
	ErrDiscoveryFailed = errors.ErrorCode("device_discovery_failed")

	// DDC/CI
	ErrNoEDID         = errors.ErrorCode("ddc_no_edid")
	ErrBadChecksum    = errors.ErrorCode("ddc_bad_checksum")
	ErrBadReply       = errors.ErrorCode("ddc_bad_reply")
	ErrUnsupportedVCP = errors.ErrorCode("ddc_unsupported_vcp")
	ErrBusOpenFailed  = errors.ErrorCode("ddc_bus_open_failed")
	ErrHostInitFailed = errors.ErrorCode("ddc_host_init_failed")
)
