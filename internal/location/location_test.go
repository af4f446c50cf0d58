package location_test

import (
	"testing"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/location"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	loc, err := location.Parse(" 48.8566 , 2.3522 ")
	require.NoError(t, err)
	assert.InDelta(t, 48.8566, loc.Latitude, 1e-9)
	assert.InDelta(t, 2.3522, loc.Longitude, 1e-9)

	loc, err = location.Parse("-33.86,151.21")
	require.NoError(t, err)
	assert.InDelta(t, -33.86, loc.Latitude, 1e-9)
}

func TestParseInvalid(t *testing.T) {
	for _, value := range []string{"48.85", "north,2.35", "48.85,east", "91,0", "0,181", ""} {
		_, err := location.Parse(value)
		require.Error(t, err, value)
		assert.True(t, errors.HasCode(err, location.ErrParseFailed), value)
	}
}

func TestLookupEnabled(t *testing.T) {
	for _, value := range []string{"", "1", "y", "yes"} {
		assert.True(t, location.LookupEnabled(value), value)
	}
	for _, value := range []string{"0", "n", "no", "true", "YES"} {
		assert.False(t, location.LookupEnabled(value), value)
	}
}
