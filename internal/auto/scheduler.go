// Package auto drives brightness from the sun curve while the daemon is in
// automatic mode.
package auto

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/history"
	"codeberg.org/mutker/backlightd/internal/ipc"
	"codeberg.org/mutker/backlightd/internal/location"
	"codeberg.org/mutker/backlightd/internal/logger"
	"codeberg.org/mutker/backlightd/internal/metrics"
	"codeberg.org/mutker/backlightd/internal/suncurve"
)

const (
	DefaultInterval      = 10 * time.Minute
	DefaultManualTimeout = 12 * time.Hour
)

// Brightness applies a target to the monitors and reports their state.
type Brightness interface {
	Set(ctx context.Context, percent uint8) error
	history.State
}

// Locator resolves the location used for the sun curve. A nil location
// selects the clock based fallback curve.
type Locator interface {
	Resolve(ctx context.Context) (*location.Location, error)
}

type Config struct {
	// Interval bounds the wait between two adjustments.
	Interval time.Duration
	// ManualTimeout is how long manual mode lasts without a new mode change.
	ManualTimeout time.Duration
	Now           func() time.Time
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "interval="+c.Interval.String())
	}
	if c.ManualTimeout <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "manual_timeout="+c.ManualTimeout.String())
	}

	return nil
}

// Scheduler is the Auto/Manual state machine. The mode is changed only by
// the Serve loop, from signals sent through Notify.
type Scheduler struct {
	cfg        Config
	brightness Brightness
	locator    Locator
	recorder   history.Recorder
	signals    chan ipc.Mode
	applyMu    sync.Mutex
	mode       atomic.Uint32
	lastChange time.Time
	log        logger.Logger
}

func NewScheduler(cfg Config, brightness Brightness, locator Locator, recorder history.Recorder) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Scheduler{
		cfg:        cfg,
		brightness: brightness,
		locator:    locator,
		recorder:   recorder,
		signals:    make(chan ipc.Mode, 1),
		log:        logger.Component("auto"),
	}
	s.mode.Store(uint32(ipc.ModeAuto))
	metrics.RecordMode(false)

	return s, nil
}

// Notify hands a mode change to the loop. When a previous signal is still
// pending, the newest one replaces it. It only waits for an automatic write
// already in progress, so a command applied after Notify returns is never
// overwritten by a stale automatic target.
func (s *Scheduler) Notify(mode ipc.Mode) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	for {
		select {
		case s.signals <- mode:
			return
		default:
		}

		select {
		case <-s.signals:
		default:
		}
	}
}

// Mode returns the mode the loop is currently in.
func (s *Scheduler) Mode() ipc.Mode {
	return ipc.Mode(s.mode.Load())
}

// Serve adjusts brightness while in auto mode and waits for the next
// interval or mode change, until ctx is done.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.lastChange = s.cfg.Now()

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		if s.Mode() == ipc.ModeAuto {
			if _, err := s.Adjust(ctx); err != nil {
				s.log.Error().Err(err).Msg("Unable to set brightness")
			}
		}

		timer.Reset(s.cfg.Interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case mode := <-s.signals:
			s.setMode(mode)
		case <-timer.C:
		}

		if s.Mode() == ipc.ModeManual && s.cfg.Now().Sub(s.lastChange) > s.cfg.ManualTimeout {
			s.log.Info().
				Dur("manual_timeout", s.cfg.ManualTimeout).
				Msg("No mode change for too long, back to auto mode")
			s.storeMode(ipc.ModeAuto)
		}
	}
}

func (s *Scheduler) setMode(mode ipc.Mode) {
	if mode != s.Mode() {
		s.log.Info().Str("mode", mode.String()).Msg("Mode changed")
	}
	s.lastChange = s.cfg.Now()
	s.storeMode(mode)
}

func (s *Scheduler) storeMode(mode ipc.Mode) {
	s.mode.Store(uint32(mode))
	metrics.RecordMode(mode == ipc.ModeManual)
}

// Adjust computes the target for the current time and applies it. Nothing
// is applied when the location cannot be resolved, or when a switch to
// manual mode arrived while the target was being computed; the latter
// returns a zero target and no error.
func (s *Scheduler) Adjust(ctx context.Context) (uint8, error) {
	now := s.cfg.Now()

	loc, err := s.locator.Resolve(ctx)
	if err != nil {
		return 0, errors.New().Wrap(ErrLocationFailed, err)
	}

	window := s.window(now, loc)
	target, err := window.Brightness(suncurve.OffsetOf(now))
	if err != nil {
		return 0, err
	}
	metrics.RecordTarget(target)

	s.applyMu.Lock()
	if s.manualPending() {
		s.applyMu.Unlock()
		s.log.Debug().Uint8("target", target).Msg("Manual mode requested, automatic target dropped")
		return 0, nil
	}
	applyErr := s.brightness.Set(ctx, target)
	s.applyMu.Unlock()

	if applyErr == nil {
		s.log.Debug().Uint8("target", target).Msg("Brightness adjusted")
	}

	snapshot := history.Capture(now, history.SourceAuto, ipc.ModeAuto.String(), target, applyErr != nil, s.brightness)
	if err := s.recorder.Record(ctx, snapshot); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record brightness history")
	}

	return target, applyErr
}

// manualPending consumes a queued mode change and reports whether it asks
// for manual mode.
func (s *Scheduler) manualPending() bool {
	select {
	case mode := <-s.signals:
		s.setMode(mode)
		return mode == ipc.ModeManual
	default:
		return false
	}
}

func (s *Scheduler) window(now time.Time, loc *location.Location) suncurve.Window {
	if loc == nil {
		return suncurve.FallbackWindow()
	}

	window, err := suncurve.SunWindow(now, loc.Latitude, loc.Longitude)
	if err != nil {
		s.log.Warn().
			Str("location", loc.String()).
			Err(err).
			Msg("No usable sun window, using fallback hours")
		return suncurve.FallbackWindow()
	}

	return window
}

func (*Scheduler) String() string {
	return "auto-scheduler"
}
