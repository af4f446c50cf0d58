package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/backlightd/internal/auto"
	"codeberg.org/mutker/backlightd/internal/brightness"
	"codeberg.org/mutker/backlightd/internal/config"
	"codeberg.org/mutker/backlightd/internal/device"
	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/history"
	"codeberg.org/mutker/backlightd/internal/hotplug"
	"codeberg.org/mutker/backlightd/internal/location"
	"codeberg.org/mutker/backlightd/internal/logger"
	"codeberg.org/mutker/backlightd/internal/metrics"
	"codeberg.org/mutker/backlightd/internal/monitors"
	"codeberg.org/mutker/backlightd/internal/pid"
	"codeberg.org/mutker/backlightd/internal/server"
	"codeberg.org/mutker/backlightd/internal/supervisor"
)

const locationTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.Init(level, logger.IsService())
	logger.Debug().Msg("Config loaded")

	if err := run(cfg); err != nil {
		logger.ErrorWithCode(err).Msg("backlightd stopped")
		os.Exit(1)
	}

	logger.Info().Msg("Exiting...")
}

func run(cfg *config.Config) error {
	if err := pid.Write(cfg.PIDFile); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(cfg.PIDFile); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder, err := newRecorder(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close brightness history")
		}
	}()

	registry := monitors.NewRegistry(backends(cfg)...)
	registry.Refresh(ctx)
	controller := brightness.NewController(registry)

	scheduler, err := auto.NewScheduler(auto.Config{
		Interval:      cfg.AdjustInterval,
		ManualTimeout: cfg.ManualTimeout,
	}, controller, newResolver(cfg), recorder)
	if err != nil {
		return err
	}

	listener, err := server.Listen(cfg.SocketPath)
	if err != nil {
		return err
	}
	defer os.Remove(cfg.SocketPath)

	tree := supervisor.New(supervisor.Config{})
	tree.Add(monitors.NewRefreshLoop(registry, cfg.RefreshCheckInterval, cfg.RefreshInterval))
	tree.Add(scheduler)
	tree.Add(server.New(server.Config{}, listener, controller, registry, scheduler, recorder))

	if cfg.Hotplug {
		watcher, err := hotplug.New(hotplug.Config{}, registry)
		if err != nil {
			logger.Warn().Err(err).Msg("Hotplug detection unavailable, use backlightctl --refresh instead")
		} else {
			tree.Add(watcher)
		}
	}

	if cfg.MetricsAddr != "" {
		exporter, err := metrics.NewExporter(cfg.MetricsAddr)
		if err != nil {
			return err
		}
		logger.Info().Str("addr", exporter.Addr()).Msg("Serving metrics")
		tree.Add(exporter)
	}

	logger.Info().
		Str("socket", cfg.SocketPath).
		Int("monitors", len(registry.Monitors())).
		Msg("backlightd started")

	err = tree.Serve(ctx)
	if ctx.Err() != nil && !errors.HasCode(err, supervisor.ErrServiceExited) {
		logger.Info().Msg("Received termination signal.")
		return nil
	}

	return err
}

func backends(cfg *config.Config) []device.Backend {
	list := []device.Backend{device.NewSysfsBackend(cfg.SysfsPath)}
	if cfg.DDC {
		list = append(list, device.NewDDCBackend())
	}

	return list
}

func newResolver(cfg *config.Config) *location.Resolver {
	return location.NewResolver(location.ResolverConfig{
		Explicit:      cfg.Location,
		LookupEnabled: cfg.LocationAPIEnabled(),
		Cache:         location.NewCache(cfg.LocationCache),
		Remote:        location.NewIPAPIClient(cfg.LocationEndpoint, &http.Client{Timeout: locationTimeout}),
	})
}

func newRecorder(cfg *config.Config) (history.Recorder, error) {
	historyCfg := history.DefaultConfig()
	historyCfg.Enabled = cfg.History
	historyCfg.DBPath = cfg.HistoryDB

	return history.NewService(historyCfg)
}
