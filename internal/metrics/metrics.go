package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MonitorsKnown is the size of the monitor registry after the last refresh
	MonitorsKnown = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backlightd_monitors",
			Help: "Number of monitors found by the last registry refresh",
		},
	)

	// MonitorBrightness is the last known brightness of each monitor
	MonitorBrightness = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backlightd_monitor_brightness_percent",
			Help: "Last known brightness per monitor",
		},
		[]string{"monitor", "kind"},
	)

	// DeviceErrors counts failed device operations
	DeviceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backlightd_device_errors_total",
			Help: "Failed device operations by backend kind and operation",
		},
		[]string{"kind", "operation"},
	)

	// Commands counts decoded client commands
	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backlightd_commands_total",
			Help: "Client commands received by kind",
		},
		[]string{"command"},
	)

	// RegistryRefreshes counts completed registry refreshes
	RegistryRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backlightd_registry_refreshes_total",
			Help: "Completed monitor registry refreshes",
		},
	)

	// LocationLookups counts location resolutions by source and result
	LocationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backlightd_location_lookups_total",
			Help: "Location resolutions by source and result",
		},
		[]string{"source", "result"},
	)

	// Mode is 0 in auto mode and 1 in manual mode
	Mode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backlightd_mode",
			Help: "Current brightness mode (0 = auto, 1 = manual)",
		},
	)

	// TargetBrightness is the last brightness computed by the sun curve
	TargetBrightness = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backlightd_auto_target_percent",
			Help: "Brightness last computed by the automatic adjustment",
		},
	)
)

// RecordRefresh updates the registry gauges after a refresh.
func RecordRefresh(monitors int) {
	RegistryRefreshes.Inc()
	MonitorsKnown.Set(float64(monitors))
	MonitorBrightness.Reset()
}

func RecordBrightness(monitor, kind string, percent uint8) {
	MonitorBrightness.WithLabelValues(monitor, kind).Set(float64(percent))
}

func RecordDeviceError(kind, operation string) {
	DeviceErrors.WithLabelValues(kind, operation).Inc()
}

func RecordCommand(command string) {
	Commands.WithLabelValues(command).Inc()
}

func RecordLocationLookup(source, result string) {
	LocationLookups.WithLabelValues(source, result).Inc()
}

func RecordMode(manual bool) {
	if manual {
		Mode.Set(1)
		return
	}
	Mode.Set(0)
}

func RecordTarget(percent uint8) {
	TargetBrightness.Set(float64(percent))
}
