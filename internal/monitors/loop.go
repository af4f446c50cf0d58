package monitors

import (
	"context"
	"time"
)

// RefreshLoop keeps the registry fresh in the background: every check
// interval it refreshes when the list is older than the refresh interval.
type RefreshLoop struct {
	registry      *Registry
	checkInterval time.Duration
	maxAge        time.Duration
}

func NewRefreshLoop(registry *Registry, checkInterval, maxAge time.Duration) *RefreshLoop {
	return &RefreshLoop{
		registry:      registry,
		checkInterval: checkInterval,
		maxAge:        maxAge,
	}
}

// Serve runs until ctx is done.
func (l *RefreshLoop) Serve(ctx context.Context) error {
	ticker := time.NewTicker(l.checkInterval)
	defer ticker.Stop()

	for {
		if l.registry.Stale(l.maxAge) {
			l.registry.Refresh(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (*RefreshLoop) String() string {
	return "monitor-refresh"
}
