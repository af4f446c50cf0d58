package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/location"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultSocketPath           = "/run/backlightd.sock"
	DefaultConfigFile           = "/etc/backlightd.toml"
	DefaultLocationCache        = "/var/cache/backlightd/last_known_location.toml"
	DefaultSysfsPath            = "/sys/class/backlight"
	DefaultPIDFile              = "/run/backlightd.pid"
	DefaultHistoryDB            = "/var/lib/backlightd/history.db"
	DefaultLogLevel             = "info"
	DefaultRefreshInterval      = 60 * time.Second
	DefaultRefreshCheckInterval = 10 * time.Second
	DefaultAdjustInterval       = 10 * time.Minute
	DefaultManualTimeout        = 12 * time.Hour

	defaultEnvPrefix = "BACKLIGHTD"
)

type Config struct {
	SocketPath           string        `mapstructure:"socket"`
	Location             string        `mapstructure:"location"`
	EnableLocationAPI    string        `mapstructure:"enable_location_api"`
	LocationCache        string        `mapstructure:"location_cache"`
	LocationEndpoint     string        `mapstructure:"location_endpoint"`
	SysfsPath            string        `mapstructure:"sysfs_path"`
	DDC                  bool          `mapstructure:"ddc"`
	Hotplug              bool          `mapstructure:"hotplug"`
	RefreshInterval      time.Duration `mapstructure:"refresh_interval"`
	RefreshCheckInterval time.Duration `mapstructure:"refresh_check_interval"`
	AdjustInterval       time.Duration `mapstructure:"adjust_interval"`
	ManualTimeout        time.Duration `mapstructure:"manual_timeout"`
	LogLevel             string        `mapstructure:"log_level"`
	PIDFile              string        `mapstructure:"pid_file"`
	MetricsAddr          string        `mapstructure:"metrics_addr"`
	History              bool          `mapstructure:"history"`
	HistoryDB            string        `mapstructure:"history_db"`

	// locationAPIBlank is set when enable_location_api is present but empty,
	// which viper cannot tell apart from unset.
	locationAPIBlank bool
}

// Load reads the configuration from defaults, the TOML config file, the
// environment and finally the command line arguments in args.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configPath, explicit := resolveConfigPath(o, fs)
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	config.locationAPIBlank = blankSetting(v, o.envPrefix, "enable_location_api")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// blankSetting reports whether key is given an empty value in the
// environment or, when the environment leaves it alone, in the config file.
func blankSetting(v *viper.Viper, envPrefix, key string) bool {
	if value, ok := os.LookupEnv(envPrefix + "_" + strings.ToUpper(key)); ok {
		return strings.TrimSpace(value) == ""
	}

	return v.InConfig(key) && strings.TrimSpace(v.GetString(key)) == ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("socket", DefaultSocketPath)
	v.SetDefault("location", "")
	v.SetDefault("enable_location_api", "")
	v.SetDefault("location_cache", DefaultLocationCache)
	v.SetDefault("location_endpoint", location.DefaultEndpoint)
	v.SetDefault("sysfs_path", DefaultSysfsPath)
	v.SetDefault("ddc", true)
	v.SetDefault("hotplug", true)
	v.SetDefault("refresh_interval", DefaultRefreshInterval)
	v.SetDefault("refresh_check_interval", DefaultRefreshCheckInterval)
	v.SetDefault("adjust_interval", DefaultAdjustInterval)
	v.SetDefault("manual_timeout", DefaultManualTimeout)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("pid_file", DefaultPIDFile)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("history", false)
	v.SetDefault("history_db", DefaultHistoryDB)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("backlightd", pflag.ContinueOnError)
	fs.String("config", "", "Path to the TOML configuration file")
	fs.StringP("unix-socket-path", "u", DefaultSocketPath, "Control socket path")
	fs.String("location", "", `Explicit location as "latitude,longitude"`)
	fs.Bool("no-ddc", false, "Do not scan for DDC/CI monitors")
	fs.Duration("adjust-interval", DefaultAdjustInterval, "Interval between automatic adjustments")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("pid-file", DefaultPIDFile, "PID file path")
	fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.Bool("history", false, "Record applied brightness to the history database")

	return fs
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"socket":          "unix-socket-path",
		"location":        "location",
		"adjust_interval": "adjust-interval",
		"log_level":       "log-level",
		"pid_file":        "pid-file",
		"metrics_addr":    "metrics-addr",
		"history":         "history",
	}
	for key, flagName := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return err
		}
	}

	// --no-ddc inverts the ddc key, so it is only applied when given
	if noDDC := fs.Lookup("no-ddc"); noDDC.Changed && noDDC.Value.String() == "true" {
		v.Set("ddc", false)
	}

	return nil
}

func resolveConfigPath(o *options, fs *pflag.FlagSet) (string, bool) {
	if o.configPath != "" {
		return o.configPath, true
	}
	if flagPath, _ := fs.GetString("config"); flagPath != "" {
		return flagPath, true
	}
	if envPath := os.Getenv(o.envPrefix + "_CONFIG"); envPath != "" {
		return envPath, true
	}

	return DefaultConfigFile, false
}

// Validate checks intervals, log level and the explicit location
func (c *Config) Validate() error {
	errFactory := errors.New()

	intervals := map[string]time.Duration{
		"refresh_interval":       c.RefreshInterval,
		"refresh_check_interval": c.RefreshCheckInterval,
		"adjust_interval":        c.AdjustInterval,
		"manual_timeout":         c.ManualTimeout,
	}
	for name, interval := range intervals {
		if interval <= 0 {
			return errFactory.WithData(errors.ErrInvalidInterval, name+"="+interval.String())
		}
	}

	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.SocketPath == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "socket path must not be empty")
	}

	if c.Location != "" {
		if _, err := location.Parse(c.Location); err != nil {
			return errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	return nil
}

// LocationAPIEnabled interprets enable_location_api: unset enables the lookup,
// otherwise only 1, y and yes do. An empty value disables it.
func (c *Config) LocationAPIEnabled() bool {
	if c.locationAPIBlank {
		return false
	}

	return location.LookupEnabled(c.EnableLocationAPI)
}
