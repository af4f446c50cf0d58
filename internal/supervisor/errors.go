package supervisor

import "codeberg.org/mutker/backlightd/internal/errors"

const ErrServiceExited = errors.ErrLoopExited
