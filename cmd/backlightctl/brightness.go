package main

import (
	"strconv"
	"strings"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/ipc"
)

// parseBrightness turns "50%", "+10%" or "-10%" into the matching command.
func parseBrightness(value string) (ipc.Command, error) {
	errFactory := errors.New()

	number, ok := strings.CutSuffix(value, "%")
	if !ok {
		return ipc.Command{}, errFactory.WithMessage(errors.ErrInvalidArgument,
			"Brightness value is missing a % sign at the end")
	}

	build := ipc.SetBrightness
	switch {
	case strings.HasPrefix(number, "+"):
		build, number = ipc.IncreaseBrightness, number[1:]
	case strings.HasPrefix(number, "-"):
		build, number = ipc.DecreaseBrightness, number[1:]
	}

	percent, err := strconv.ParseUint(number, 10, 8)
	if err != nil {
		return ipc.Command{}, errFactory.WithMessage(errors.ErrInvalidArgument,
			"Unable to parse brightness value "+number+": "+err.Error())
	}
	if percent > 100 {
		return ipc.Command{}, errFactory.WithMessage(errors.ErrInvalidArgument,
			"Brightness value must be a percentage between -100% and 100%")
	}

	return build(uint8(percent)), nil
}
