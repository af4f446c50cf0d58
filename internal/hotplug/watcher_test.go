package hotplug_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/hotplug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) Refresh(context.Context) {
	r.calls.Add(1)
}

func startWatcher(t *testing.T, dir string, refresher hotplug.Refresher) {
	t.Helper()

	w, err := hotplug.New(hotplug.Config{Dir: dir, Debounce: 50 * time.Millisecond}, refresher)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func TestBusBurstRefreshesOnce(t *testing.T) {
	dir := t.TempDir()
	refresher := &countingRefresher{}
	startWatcher(t, dir, refresher)

	touch(t, filepath.Join(dir, "i2c-3"))
	touch(t, filepath.Join(dir, "i2c-4"))
	require.NoError(t, os.Remove(filepath.Join(dir, "i2c-3")))

	require.Eventually(t, func() bool { return refresher.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestIgnoresOtherDevices(t *testing.T) {
	dir := t.TempDir()
	refresher := &countingRefresher{}
	startWatcher(t, dir, refresher)

	touch(t, filepath.Join(dir, "ttyUSB0"))
	time.Sleep(200 * time.Millisecond)

	assert.Zero(t, refresher.calls.Load())
}

func TestMissingDir(t *testing.T) {
	_, err := hotplug.New(hotplug.Config{Dir: filepath.Join(t.TempDir(), "missing")}, &countingRefresher{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, hotplug.ErrWatch))
}
