package location

import "codeberg.org/mutker/backlightd/internal/errors"

const (
	ErrParseFailed   = errors.ErrorCode("location_parse_failed")
	ErrLookupFailed  = errors.ErrNetwork
	ErrLookupStatus  = errors.ErrorCode("location_lookup_status")
	ErrCircuitOpen   = errors.ErrorCode("location_circuit_open")
	ErrCacheRead     = errors.ErrCache
	ErrCacheWrite    = errors.ErrorCode("location_cache_write_failed")
	ErrInvalidConfig = errors.ErrInvalidConfig
)
