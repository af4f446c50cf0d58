package monitors

import "codeberg.org/mutker/backlightd/internal/errors"

// ErrNoMonitors is returned by operations that need at least one monitor.
const ErrNoMonitors = errors.ErrorCode("monitors_no_monitors")
