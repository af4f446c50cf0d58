package brightness_test

import (
	"context"
	"sync"
	"testing"

	"codeberg.org/mutker/backlightd/internal/brightness"
	"codeberg.org/mutker/backlightd/internal/device"
	"codeberg.org/mutker/backlightd/internal/device/devicetest"
	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/monitors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newController(t *testing.T, devices ...device.Device) (*brightness.Controller, *devicetest.Backend) {
	t.Helper()

	backend := devicetest.NewBackend(devices...)
	registry := monitors.NewRegistry(backend)
	registry.Refresh(context.Background())

	return brightness.NewController(registry), backend
}

func TestSet(t *testing.T) {
	a := devicetest.NewDevice("a", 10)
	b := devicetest.NewSysfsDevice("b", 90)
	controller, backend := newController(t, a, b)

	require.NoError(t, controller.Set(context.Background(), 55))
	assert.Equal(t, uint8(55), a.Brightness())
	assert.Equal(t, uint8(55), b.Brightness())
	assert.Equal(t, 1, backend.Discovers(), "A successful batch does not refresh")
}

func TestSetRejectsInvalidPercent(t *testing.T) {
	a := devicetest.NewDevice("a", 10)
	controller, _ := newController(t, a)

	err := controller.Set(context.Background(), 101)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, brightness.ErrInvalidPercent))
	assert.Empty(t, a.Sets())
}

func TestSetPartialFailure(t *testing.T) {
	a := devicetest.NewDevice("a", 10)
	broken := devicetest.NewDevice("broken", 10)
	c := devicetest.NewDevice("c", 10)
	broken.FailSet(true)
	controller, backend := newController(t, a, broken, c)

	err := controller.Set(context.Background(), 70)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, brightness.ErrBatchFailed))
	assert.True(t, errors.HasCode(err, device.ErrDevice))

	assert.Equal(t, uint8(70), a.Brightness())
	assert.Equal(t, uint8(70), c.Brightness(), "Monitors after a failing one are still attempted")
	assert.Equal(t, uint8(10), broken.Brightness())
	assert.Equal(t, 2, backend.Discovers(), "A failed batch refreshes the registry once")
	assert.Len(t, a.Sets(), 1, "Writes are not retried")
}

func TestIncreaseDecreaseClamp(t *testing.T) {
	for _, current := range []uint8{0, 1, 5, 50, 95, 100} {
		for _, delta := range []uint8{0, 1, 10, 100} {
			d := devicetest.NewDevice("d", current)
			controller, _ := newController(t, d)

			require.NoError(t, controller.Increase(context.Background(), delta))
			want := min(100, max(1, int(current)+int(delta)))
			assert.Equal(t, uint8(want), d.Brightness(), "increase %d by %d", current, delta)

			d = devicetest.NewDevice("d", current)
			controller, _ = newController(t, d)

			require.NoError(t, controller.Decrease(context.Background(), delta))
			want = max(1, int(current)-int(delta))
			assert.Equal(t, uint8(want), d.Brightness(), "decrease %d by %d", current, delta)
		}
	}
}

func TestIncreaseIsPerMonitor(t *testing.T) {
	low := devicetest.NewDevice("low", 20)
	high := devicetest.NewDevice("high", 95)
	controller, _ := newController(t, low, high)

	require.NoError(t, controller.Increase(context.Background(), 10))
	assert.Equal(t, uint8(30), low.Brightness())
	assert.Equal(t, uint8(100), high.Brightness())

	require.NoError(t, controller.Decrease(context.Background(), 25))
	assert.Equal(t, uint8(5), low.Brightness())
	assert.Equal(t, uint8(75), high.Brightness())
}

func TestAverage(t *testing.T) {
	controller, _ := newController(t,
		devicetest.NewDevice("a", 20),
		devicetest.NewDevice("b", 40),
		devicetest.NewDevice("c", 41),
	)

	avg, err := controller.Average()
	require.NoError(t, err)
	assert.Equal(t, uint8(33), avg)
}

func TestEmptyRegistry(t *testing.T) {
	controller, _ := newController(t)

	_, err := controller.Average()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, monitors.ErrNoMonitors))

	assert.NoError(t, controller.Set(context.Background(), 50))
	assert.NoError(t, controller.Increase(context.Background(), 10))
	assert.NoError(t, controller.Decrease(context.Background(), 10))
	assert.NoError(t, controller.TurnOff(context.Background()))
	assert.NoError(t, controller.TurnOn(context.Background()))
}

func TestTurnOffSkipsUnsupported(t *testing.T) {
	ddc := devicetest.NewDevice("ddc", 50)
	panel := devicetest.NewSysfsDevice("intel_backlight", 50)
	controller, backend := newController(t, ddc, panel)

	require.NoError(t, controller.TurnOff(context.Background()))
	assert.False(t, ddc.Powered())
	assert.Equal(t, 1, backend.Discovers())

	require.NoError(t, controller.TurnOn(context.Background()))
	assert.True(t, ddc.Powered())
}

func TestTurnOffNothingSupported(t *testing.T) {
	controller, backend := newController(t, devicetest.NewSysfsDevice("intel_backlight", 50))

	err := controller.TurnOff(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, brightness.ErrNotSupported))
	assert.Equal(t, 1, backend.Discovers(), "Missing support is not retried")
}

func TestTurnOffRetriesWholeBatchOnce(t *testing.T) {
	good := devicetest.NewDevice("good", 50)
	flaky := devicetest.NewDevice("flaky", 50)
	flaky.FailPower(true)
	controller, backend := newController(t, good, flaky)

	backend.OnDiscover(func(call int) {
		if call == 2 {
			flaky.FailPower(false)
		}
	})

	require.NoError(t, controller.TurnOff(context.Background()))
	assert.Equal(t, 2, backend.Discovers())

	offs, _ := good.PowerCalls()
	assert.Equal(t, 2, offs, "The retry covers every monitor")
	assert.False(t, flaky.Powered())
}

func TestTurnOnFailsAfterRetry(t *testing.T) {
	broken := devicetest.NewDevice("broken", 50)
	broken.FailPower(true)
	controller, backend := newController(t, broken)

	err := controller.TurnOn(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, brightness.ErrBatchFailed))
	assert.Equal(t, 2, backend.Discovers(), "Exactly one refresh and retry")
}

func TestConcurrentRelativeChanges(t *testing.T) {
	a := devicetest.NewDevice("a", 50)
	b := devicetest.NewSysfsDevice("b", 50)
	controller, _ := newController(t, a, b)

	const workers = 20

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				assert.NoError(t, controller.Increase(context.Background(), 2))
			} else {
				assert.NoError(t, controller.Decrease(context.Background(), 1))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint8(60), a.Brightness(), "No relative change is lost")
	assert.Equal(t, uint8(60), b.Brightness())
	assert.Len(t, a.Sets(), workers)
}
