package brightness

import (
	"context"
	"sync"

	"codeberg.org/mutker/backlightd/internal/device"
	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/logger"
	"codeberg.org/mutker/backlightd/internal/metrics"
	"codeberg.org/mutker/backlightd/internal/monitors"
)

const (
	minPercent = 1
	maxPercent = 100
)

// Registry is the monitor list the controller operates on.
type Registry interface {
	Monitors() []device.Device
	Refresh(ctx context.Context)
}

// Controller applies brightness and power operations to every monitor. A
// failing monitor never stops the others from being attempted. Brightness
// batches run one at a time so a relative change always sees the result of
// the previous one.
type Controller struct {
	registry Registry
	log      logger.Logger

	mu sync.Mutex
}

func NewController(registry Registry) *Controller {
	return &Controller{
		registry: registry,
		log:      logger.Component("brightness"),
	}
}

// Set applies percent to every monitor.
func (c *Controller) Set(ctx context.Context, percent uint8) error {
	if percent > maxPercent {
		return errors.New().WithData(ErrInvalidPercent, percent)
	}

	return c.apply(ctx, func(uint8) uint8 { return percent })
}

// Increase raises every monitor by delta, capped at 100.
func (c *Controller) Increase(ctx context.Context, delta uint8) error {
	return c.apply(ctx, func(current uint8) uint8 {
		return clamp(int(current) + int(delta))
	})
}

// Decrease lowers every monitor by delta. It never goes below 1 so a screen
// is never left fully black.
func (c *Controller) Decrease(ctx context.Context, delta uint8) error {
	return c.apply(ctx, func(current uint8) uint8 {
		return clamp(int(current) - int(delta))
	})
}

func clamp(percent int) uint8 {
	return uint8(max(minPercent, min(maxPercent, percent)))
}

// apply writes target(current) to each monitor. When any write fails the
// registry is refreshed once and the aggregated failure is returned; the
// writes are not retried.
func (c *Controller) apply(ctx context.Context, target func(current uint8) uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, m := range c.registry.Monitors() {
		percent := target(m.Brightness())

		if err := m.SetBrightness(percent); err != nil {
			c.log.Error().
				Str("monitor", m.Name()).
				Str("kind", string(m.Kind())).
				Uint8("percent", percent).
				Err(err).
				Msg("Failed to set brightness")
			metrics.RecordDeviceError(string(m.Kind()), "set_brightness")
			errs = append(errs, err)
			continue
		}

		c.log.Debug().
			Str("monitor", m.Name()).
			Uint8("percent", percent).
			Msg("Brightness set")
		metrics.RecordBrightness(m.Name(), string(m.Kind()), percent)
	}

	if len(errs) == 0 {
		return nil
	}

	c.registry.Refresh(ctx)

	return errors.New().Join(ErrBatchFailed, errs...)
}

// TurnOff powers every monitor down.
func (c *Controller) TurnOff(ctx context.Context) error {
	return c.power(ctx, "turn_off", device.Device.TurnOff)
}

// TurnOn powers every monitor up.
func (c *Controller) TurnOn(ctx context.Context) error {
	return c.power(ctx, "turn_on", device.Device.TurnOn)
}

// power runs op on every monitor. After a failure the registry is refreshed
// and the whole batch is retried exactly once. Monitors without power control
// are skipped; when none of them has it the result is ErrNotSupported.
func (c *Controller) power(ctx context.Context, name string, op func(device.Device) error) error {
	err := c.powerBatch(name, op)
	if err == nil || !errors.HasCode(err, ErrBatchFailed) {
		return err
	}

	c.log.Warn().Str("operation", name).Err(err).Msg("Power batch failed, refreshing monitors and retrying")
	c.registry.Refresh(ctx)

	return c.powerBatch(name, op)
}

func (c *Controller) powerBatch(name string, op func(device.Device) error) error {
	errFactory := errors.New()

	list := c.registry.Monitors()

	var (
		errs      []error
		supported int
	)
	for _, m := range list {
		err := op(m)
		switch {
		case err == nil:
			supported++
			c.log.Debug().Str("monitor", m.Name()).Str("operation", name).Msg("Power mode set")
		case errors.HasCode(err, ErrNotSupported):
			c.log.Debug().Str("monitor", m.Name()).Str("operation", name).Msg("Monitor has no power control")
		default:
			supported++
			c.log.Error().
				Str("monitor", m.Name()).
				Str("kind", string(m.Kind())).
				Str("operation", name).
				Err(err).
				Msg("Failed to set power mode")
			metrics.RecordDeviceError(string(m.Kind()), name)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errFactory.Join(ErrBatchFailed, errs...)
	}
	if len(list) > 0 && supported == 0 {
		return errFactory.WithData(ErrNotSupported, "no monitor supports power control")
	}

	return nil
}

// Average returns the floor of the mean brightness of all monitors. It fails
// with monitors.ErrNoMonitors when the registry is empty.
func (c *Controller) Average() (uint8, error) {
	list := c.registry.Monitors()
	if len(list) == 0 {
		return 0, errors.New().New(monitors.ErrNoMonitors)
	}

	var sum int
	for _, m := range list {
		sum += int(m.Brightness())
	}

	return uint8(sum / len(list)), nil
}

// Count returns the number of known monitors.
func (c *Controller) Count() int {
	return len(c.registry.Monitors())
}
