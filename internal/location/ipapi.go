package location

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/logger"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultRequestTimeout = 10 * time.Second

	breakerFailureThreshold = 3
	breakerCoolDown         = 30 * time.Minute
)

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// IPAPIClient resolves the host's location from its public IP address. Calls
// go through a circuit breaker so an unreachable service is not hammered on
// every adjustment.
type IPAPIClient struct {
	endpoint string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[Location]
}

func NewIPAPIClient(endpoint string, httpClient *http.Client) *IPAPIClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	log := logger.Component("location")

	breaker := gobreaker.NewCircuitBreaker[Location](gobreaker.Settings{
		Name:        "ip-api",
		MaxRequests: 1,
		Timeout:     breakerCoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Location lookup circuit changed state")
		},
	})

	return &IPAPIClient{
		endpoint: endpoint,
		http:     httpClient,
		breaker:  breaker,
	}
}

// Lookup queries the remote service.
func (c *IPAPIClient) Lookup(ctx context.Context) (Location, error) {
	loc, err := c.breaker.Execute(func() (Location, error) {
		return c.fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Location{}, errors.New().Wrap(ErrCircuitOpen, err)
	}

	return loc, err
}

func (c *IPAPIClient) fetch(ctx context.Context) (Location, error) {
	errFactory := errors.New()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, http.NoBody)
	if err != nil {
		return Location{}, errFactory.Wrap(ErrLookupFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, errFactory.Wrap(ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, errFactory.WithData(ErrLookupFailed, resp.Status)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, errFactory.Wrap(ErrLookupFailed, err)
	}

	if body.Status != "success" {
		status := errFactory.WithData(ErrLookupStatus, body.Message).WithMessage("Unable to find location by IP")
		return Location{}, errFactory.Wrap(ErrLookupFailed, status)
	}

	logger.Info().
		Str("country", body.Country).
		Str("city", body.City).
		Float64("latitude", body.Lat).
		Float64("longitude", body.Lon).
		Msg("Found location using public IP")

	return Location{Latitude: body.Lat, Longitude: body.Lon}, nil
}
