// Package suncurve maps the time of day to a target brightness that ramps up
// after sunrise and down after sunset.
package suncurve

import (
	"math"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"github.com/nathan-osman/go-sunrise"
)

const (
	MinPercent = 1
	MaxPercent = 100

	// RampDuration is the length of both the morning and the evening ramp.
	RampDuration = 4 * time.Hour

	fallbackUpBegin   = 6 * time.Hour
	fallbackDownBegin = 18 * time.Hour
)

const (
	ErrInvalidWindow = errors.ErrorCode("suncurve_invalid_window")
	ErrNoSunWindow   = errors.ErrorCode("suncurve_no_sun_window")
)

// Window holds the ramp boundaries as offsets from local midnight. Offsets
// past 24h belong to the same day and are never wrapped.
type Window struct {
	UpBegin   time.Duration
	UpEnd     time.Duration
	DownBegin time.Duration
	DownEnd   time.Duration
}

// Validate checks UpBegin < UpEnd < DownBegin < DownEnd.
func (w Window) Validate() error {
	if w.UpBegin < w.UpEnd && w.UpEnd < w.DownBegin && w.DownBegin < w.DownEnd {
		return nil
	}

	return errors.New().WithData(ErrInvalidWindow, w)
}

// Brightness evaluates the curve at now, an offset from local midnight.
func (w Window) Brightness(now time.Duration) (uint8, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}

	switch {
	case now < w.UpBegin || now > w.DownEnd:
		return MinPercent, nil
	case now > w.UpEnd && now < w.DownBegin:
		return MaxPercent, nil
	case now <= w.UpEnd:
		return ramp(float64(now-w.UpBegin) / float64(w.UpEnd-w.UpBegin)), nil
	default:
		return ramp(1 - float64(now-w.DownBegin)/float64(w.DownEnd-w.DownBegin)), nil
	}
}

func ramp(progress float64) uint8 {
	return uint8(math.Round(progress*(MaxPercent-MinPercent) + MinPercent))
}

// Compute is Window{upBegin, upEnd, downBegin, downEnd}.Brightness(now).
func Compute(now, upBegin, upEnd, downBegin, downEnd time.Duration) (uint8, error) {
	return Window{
		UpBegin:   upBegin,
		UpEnd:     upEnd,
		DownBegin: downBegin,
		DownEnd:   downEnd,
	}.Brightness(now)
}

// FallbackWindow is used when no location is known: ramp up from 06:00 and
// down from 18:00.
func FallbackWindow() Window {
	return Window{
		UpBegin:   fallbackUpBegin,
		UpEnd:     fallbackUpBegin + RampDuration,
		DownBegin: fallbackDownBegin,
		DownEnd:   fallbackDownBegin + RampDuration,
	}
}

// SunWindow computes the window for the local day of date at the given
// coordinates: ramp up from sunrise and down from sunset. Days without a
// sunrise or sunset, as near the poles, return ErrNoSunWindow.
func SunWindow(date time.Time, latitude, longitude float64) (Window, error) {
	errFactory := errors.New()

	rise, set := sunrise.SunriseSunset(latitude, longitude, date.Year(), date.Month(), date.Day())
	if rise.IsZero() || set.IsZero() {
		return Window{}, errFactory.WithData(ErrNoSunWindow, date.Format(time.DateOnly))
	}

	midnight := Midnight(date)
	up := rise.In(date.Location()).Sub(midnight)
	down := set.In(date.Location()).Sub(midnight)

	w := Window{
		UpBegin:   up,
		UpEnd:     up + RampDuration,
		DownBegin: down,
		DownEnd:   down + RampDuration,
	}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}

	return w, nil
}

// Midnight returns the start of t's day in t's location.
func Midnight(t time.Time) time.Time {
	year, month, day := t.Date()

	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// OffsetOf returns how long after local midnight t is.
func OffsetOf(t time.Time) time.Duration {
	return t.Sub(Midnight(t))
}
