package suncurve_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/suncurve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hms(h, m, s int) time.Duration {
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

func TestExactTransitionPoints(t *testing.T) {
	upBegin, upEnd := hms(6, 7, 8), hms(7, 8, 9)
	downBegin, downEnd := hms(19, 18, 17), hms(20, 19, 18)

	cases := map[time.Duration]uint8{
		upBegin:   1,
		upEnd:     100,
		downBegin: 100,
		downEnd:   1,
	}
	for now, want := range cases {
		got, err := suncurve.Compute(now, upBegin, upEnd, downBegin, downEnd)
		require.NoError(t, err)
		assert.Equal(t, want, got, "at %s", now)
	}
}

func TestFallbackHours(t *testing.T) {
	w := suncurve.FallbackWindow()
	assert.Equal(t, hms(6, 0, 0), w.UpBegin)
	assert.Equal(t, hms(10, 0, 0), w.UpEnd)
	assert.Equal(t, hms(18, 0, 0), w.DownBegin)
	assert.Equal(t, hms(22, 0, 0), w.DownEnd)

	for h := 0; h <= 23; h++ {
		got, err := w.Brightness(hms(h, 0, 0))
		require.NoError(t, err)

		switch {
		case h <= 6 || h >= 22:
			assert.Equal(t, uint8(1), got, "hour %d", h)
		case h >= 10 && h <= 18:
			assert.Equal(t, uint8(100), got, "hour %d", h)
		default:
			assert.Greater(t, got, uint8(1), "hour %d", h)
			assert.Less(t, got, uint8(100), "hour %d", h)
		}
	}
}

func TestRamps(t *testing.T) {
	w := suncurve.FallbackWindow()

	// halfway through a ramp: round(0.5 * 99 + 1) = 51
	got, err := w.Brightness(hms(8, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint8(51), got)

	got, err = w.Brightness(hms(20, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint8(51), got)

	// a quarter into the morning ramp: round(0.25 * 99 + 1) = 26
	got, err = w.Brightness(hms(7, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint8(26), got)

	// a quarter into the evening ramp: round(0.75 * 99 + 1) = 75
	got, err = w.Brightness(hms(19, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint8(75), got)
}

func TestRampIsMonotonic(t *testing.T) {
	w := suncurve.FallbackWindow()

	prev := uint8(0)
	for now := w.UpBegin; now <= w.UpEnd; now += time.Minute {
		got, err := w.Brightness(now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}

	for now := w.DownBegin; now <= w.DownEnd; now += time.Minute {
		got, err := w.Brightness(now)
		require.NoError(t, err)
		assert.LessOrEqual(t, got, prev)
		prev = got
	}
}

func TestInvalidWindow(t *testing.T) {
	_, err := suncurve.Compute(hms(12, 0, 0), hms(10, 0, 0), hms(6, 0, 0), hms(18, 0, 0), hms(22, 0, 0))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, suncurve.ErrInvalidWindow))

	_, err = suncurve.Compute(hms(12, 0, 0), hms(6, 0, 0), hms(6, 0, 0), hms(18, 0, 0), hms(22, 0, 0))
	assert.Error(t, err, "Boundaries must be strictly ordered")
}

func TestWindowPastMidnight(t *testing.T) {
	w := suncurve.Window{
		UpBegin:   hms(8, 0, 0),
		UpEnd:     hms(12, 0, 0),
		DownBegin: hms(22, 0, 0),
		DownEnd:   hms(26, 0, 0),
	}
	require.NoError(t, w.Validate())

	got, err := w.Brightness(hms(23, 59, 0))
	require.NoError(t, err)
	assert.Greater(t, got, uint8(1), "The evening ramp is still running before midnight")

	got, err = w.Brightness(hms(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint8(1), got, "Offsets are never wrapped")
}

func TestSunWindow(t *testing.T) {
	date := time.Date(2024, time.June, 21, 12, 0, 0, 0, time.UTC)

	w, err := suncurve.SunWindow(date, 48.8566, 2.3522)
	require.NoError(t, err)

	assert.Greater(t, w.UpBegin, hms(3, 0, 0))
	assert.Less(t, w.UpBegin, hms(4, 30, 0))
	assert.Greater(t, w.DownBegin, hms(19, 30, 0))
	assert.Less(t, w.DownBegin, hms(20, 30, 0))
	assert.Equal(t, suncurve.RampDuration, w.UpEnd-w.UpBegin)
	assert.Equal(t, suncurve.RampDuration, w.DownEnd-w.DownBegin)
}

func TestSunWindowPolarDay(t *testing.T) {
	date := time.Date(2024, time.June, 21, 12, 0, 0, 0, time.UTC)

	_, err := suncurve.SunWindow(date, 78.22, 15.65)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, suncurve.ErrNoSunWindow))
}

func TestOffsetOf(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	now := time.Date(2024, time.March, 3, 14, 30, 15, 0, loc)

	assert.Equal(t, hms(14, 30, 15), suncurve.OffsetOf(now))
	assert.Equal(t, time.Date(2024, time.March, 3, 0, 0, 0, 0, loc), suncurve.Midnight(now))
}
