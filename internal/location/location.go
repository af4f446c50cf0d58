package location

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/mutker/backlightd/internal/errors"
)

// DefaultEndpoint is the ip-api query used for IP based geolocation.
const DefaultEndpoint = "http://ip-api.com/json/?fields=status,message,country,city,lat,lon"

// Location is a point on earth in decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

func (l Location) String() string {
	return fmt.Sprintf("%.4f,%.4f", l.Latitude, l.Longitude)
}

// Parse reads a "latitude,longitude" pair. Surrounding whitespace around
// either value is ignored.
func Parse(value string) (Location, error) {
	errFactory := errors.New()

	lat, lon, ok := strings.Cut(value, ",")
	if !ok {
		return Location{}, errFactory.WithData(ErrParseFailed, "expected a comma between latitude and longitude")
	}

	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Location{}, errFactory.Wrap(ErrParseFailed, err).WithMessage("unable to parse latitude")
	}

	longitude, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return Location{}, errFactory.Wrap(ErrParseFailed, err).WithMessage("unable to parse longitude")
	}

	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return Location{}, errFactory.WithData(ErrParseFailed, value).WithMessage("coordinates out of range")
	}

	return Location{Latitude: latitude, Longitude: longitude}, nil
}

// LookupEnabled interprets the location API switch. An empty value enables
// the remote lookup, otherwise only 1, y and yes do.
func LookupEnabled(value string) bool {
	switch strings.TrimSpace(value) {
	case "", "1", "y", "yes":
		return true
	default:
		return false
	}
}
