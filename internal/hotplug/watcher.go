// Package hotplug refreshes the monitor registry when i2c buses appear or
// disappear, as happens when a display is plugged in.
package hotplug

import (
	"context"
	"path/filepath"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/logger"
	"github.com/fsnotify/fsnotify"
)

const (
	DefaultDir      = "/dev"
	DefaultPattern  = "i2c-*"
	DefaultDebounce = 2 * time.Second
)

const (
	ErrWatch      = errors.ErrorCode("hotplug_watch_failed")
	ErrLoopExited = errors.ErrLoopExited
)

// Refresher re-enumerates the monitors.
type Refresher interface {
	Refresh(ctx context.Context)
}

type Config struct {
	Dir      string
	Pattern  string
	Debounce time.Duration
}

type Watcher struct {
	cfg       Config
	fs        *fsnotify.Watcher
	refresher Refresher
	log       logger.Logger
}

// New starts watching cfg.Dir. Events are only consumed once Serve runs.
func New(cfg Config, refresher Refresher) (*Watcher, error) {
	errFactory := errors.New()

	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultPattern
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if _, err := filepath.Match(cfg.Pattern, ""); err != nil {
		return nil, errFactory.Wrap(ErrWatch, err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errFactory.Wrap(ErrWatch, err)
	}
	if err := fs.Add(cfg.Dir); err != nil {
		fs.Close()
		return nil, errFactory.WithData(ErrWatch, cfg.Dir+": "+err.Error())
	}

	return &Watcher{
		cfg:       cfg,
		fs:        fs,
		refresher: refresher,
		log:       logger.Component("hotplug"),
	}, nil
}

// Serve refreshes the registry once a burst of matching events has been
// quiet for the debounce delay. It closes the watch when it returns.
func (w *Watcher) Serve(ctx context.Context) error {
	defer w.fs.Close()

	w.log.Info().Str("dir", w.cfg.Dir).Str("pattern", w.cfg.Pattern).Msg("Watching for display hotplug")

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return errors.New().WithMessage(ErrLoopExited, "hotplug event stream closed")
			}
			if !w.matches(event) {
				continue
			}
			w.log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Bus change detected")
			timer.Reset(w.cfg.Debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New().WithMessage(ErrLoopExited, "hotplug error stream closed")
			}
			w.log.Warn().Err(err).Msg("Hotplug watch error")
		case <-timer.C:
			w.log.Info().Msg("Display hotplug, refreshing monitors")
			w.refresher.Refresh(ctx)
		}
	}
}

func (w *Watcher) matches(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
		return false
	}
	ok, _ := filepath.Match(w.cfg.Pattern, filepath.Base(event.Name))

	return ok
}

func (*Watcher) String() string {
	return "hotplug-watcher"
}
