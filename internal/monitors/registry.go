package monitors

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/backlightd/internal/device"
	"codeberg.org/mutker/backlightd/internal/logger"
	"codeberg.org/mutker/backlightd/internal/metrics"
)

// Registry owns the current set of discovered monitors. The set is replaced
// wholesale on refresh, so readers always see a complete list.
type Registry struct {
	backends []device.Backend
	now      func() time.Time
	log      logger.Logger

	mu          sync.RWMutex
	monitors    []device.Device
	lastRefresh time.Time

	// serializes refreshes without blocking readers
	refreshMu sync.Mutex
}

func NewRegistry(backends ...device.Backend) *Registry {
	return &Registry{
		backends: backends,
		now:      time.Now,
		log:      logger.Component("monitors"),
	}
}

// Monitors returns a snapshot of the current monitor list.
func (r *Registry) Monitors() []device.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]device.Device(nil), r.monitors...)
}

// LastRefresh returns when the list was last replaced, zero if never.
func (r *Registry) LastRefresh() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastRefresh
}

// Replace swaps in a new monitor list.
func (r *Registry) Replace(monitors []device.Device) {
	r.mu.Lock()
	r.monitors = monitors
	r.lastRefresh = r.now()
	r.mu.Unlock()

	metrics.RecordRefresh(len(monitors))
	for _, m := range monitors {
		metrics.RecordBrightness(m.Name(), string(m.Kind()), m.Brightness())
	}
}

// Refresh enumerates every backend and replaces the monitor list. Device I/O
// happens without holding the registry lock. Per-device discovery failures
// are logged and skipped; finding no monitor at all is not an error.
func (r *Registry) Refresh(ctx context.Context) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	var found []device.Device
	for _, backend := range r.backends {
		devices, errs := backend.Discover(ctx)
		for _, err := range errs {
			r.log.Warn().
				Str("kind", string(backend.Kind())).
				Err(err).
				Msg("Failed to retrieve backlight monitor")
		}
		found = append(found, devices...)
	}

	r.Replace(found)

	r.log.Debug().Int("monitors", len(found)).Msg("Monitor list refreshed")
	for _, m := range found {
		r.log.Debug().
			Str("monitor", m.Name()).
			Str("kind", string(m.Kind())).
			Uint8("percent", m.Brightness()).
			Msg("Found monitor")
	}
}

// Stale reports whether the list was never refreshed or is older than maxAge.
func (r *Registry) Stale(maxAge time.Duration) bool {
	last := r.LastRefresh()

	return last.IsZero() || r.now().Sub(last) > maxAge
}
