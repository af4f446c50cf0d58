package location

import (
	"context"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/logger"
	"codeberg.org/mutker/backlightd/internal/metrics"
)

// Remote looks up the current location from an external service.
type Remote interface {
	Lookup(ctx context.Context) (Location, error)
}

type ResolverConfig struct {
	// Explicit is a configured "latitude,longitude" pair; it wins over every
	// other source when set.
	Explicit      string
	LookupEnabled bool
	Cache         *Cache
	Remote        Remote
	TTL           time.Duration
	Now           func() time.Time
}

// Resolver finds the location used for the sun curve, trying the explicit
// configuration, the cache and finally the remote service.
type Resolver struct {
	cfg ResolverConfig
	log logger.Logger
}

func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Cache == nil {
		cfg.Cache = NewCache("")
	}

	return &Resolver{cfg: cfg, log: logger.Component("location")}
}

// Resolve returns the location to use, or nil when none is available and the
// caller should fall back to the clock based curve. Only a malformed explicit
// location is reported as an error; lookup and cache failures are logged.
func (r *Resolver) Resolve(ctx context.Context) (*Location, error) {
	if r.cfg.Explicit != "" {
		loc, err := Parse(r.cfg.Explicit)
		if err != nil {
			return nil, errors.New().Wrap(ErrInvalidConfig, err)
		}
		r.log.Debug().Str("location", loc.String()).Msg("Using location from configuration")
		metrics.RecordLocationLookup("config", "hit")

		return &loc, nil
	}

	if !r.cfg.LookupEnabled || r.cfg.Remote == nil {
		r.log.Warn().Msg("Unable to find location, configure one or allow the public API lookup")
		r.log.Info().Msg("Falling back to clock based brightness adjustment")
		metrics.RecordLocationLookup("none", "disabled")

		return nil, nil
	}

	now := r.cfg.Now()

	cached, ok, err := r.cfg.Cache.Fresh(now, r.cfg.TTL)
	if err != nil {
		r.log.Warn().Err(err).Msg("Ignoring location cache")
	}
	if ok {
		r.log.Debug().Str("location", cached.String()).Msg("Using cached location")
		metrics.RecordLocationLookup("cache", "hit")

		return &cached, nil
	}

	r.log.Debug().Msg("Trying to get location from public API")

	loc, err := r.cfg.Remote.Lookup(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to get location using public API")
		r.log.Info().Msg("Falling back to clock based brightness adjustment")
		metrics.RecordLocationLookup("remote", "error")

		return nil, nil
	}
	metrics.RecordLocationLookup("remote", "hit")

	if err := r.cfg.Cache.Store(loc, now); err != nil {
		r.log.Error().Err(err).Msg("Failed to write location cache")
	}

	return &loc, nil
}
