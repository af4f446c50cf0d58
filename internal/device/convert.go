package device

import (
	"math"

	"codeberg.org/mutker/backlightd/internal/errors"
)

const maxPercent = 100

// percentToRaw converts a percent to the backend's raw range, rounding to the
// nearest raw step.
func percentToRaw(percent uint8, maximum uint64) uint64 {
	return uint64(math.Round(float64(percent) / maxPercent * float64(maximum)))
}

// rawToPercent converts a raw value back to a percent with integer division.
// Values above maximum report 100.
func rawToPercent(raw, maximum uint64) uint8 {
	if maximum == 0 {
		return 0
	}
	if raw >= maximum {
		return maxPercent
	}

	return uint8(raw * maxPercent / maximum)
}

func checkPercent(percent uint8) error {
	if percent > maxPercent {
		return errors.New().WithData(ErrInvalidPercent, percent)
	}

	return nil
}
