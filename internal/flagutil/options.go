package flagutil

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/petr-muller/planesync/internal/config"
)

const (
	envFileFlag          = "env-file"
	stateFileFlag        = "state-file"
	logLevelFlag         = "log-level"
	logFileFlag          = "log-file"
	notificationHourFlag = "notification-hour"
	metricsAddrFlag      = "metrics-addr"
)

// Options holds command line overrides for the environment configuration
type Options struct {
	EnvFiles         []string
	StateFile        string
	LogLevel         string
	LogFile          string
	NotificationHour int
	MetricsAddr      string

	fs *pflag.FlagSet
}

// AddPFlags injects the options into the given pflag.FlagSet
func (o *Options) AddPFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&o.EnvFiles, envFileFlag, nil, "Env file(s) to load before reading the environment (default .env when present)")
	fs.StringVar(&o.StateFile, stateFileFlag, "", "Path to the sync state file (overrides STATE_FILE)")
	fs.StringVar(&o.LogLevel, logLevelFlag, "", "Log level (overrides LOG_LEVEL)")
	fs.StringVar(&o.LogFile, logFileFlag, "", "Path to a JSON log file (overrides LOG_FILE)")
	fs.IntVar(&o.NotificationHour, notificationHourFlag, config.DefaultNotificationHour, "Hour of the day (0-23) to send the notification (overrides NOTIFICATION_HOUR)")
	fs.StringVar(&o.MetricsAddr, metricsAddrFlag, "", "Address to serve Prometheus metrics on (overrides METRICS_ADDR)")
	o.fs = fs
}

// Config loads the environment configuration and applies the flags that were set
func (o *Options) Config() (*config.Config, error) {
	cfg, err := config.Load(o.EnvFiles...)
	if err != nil {
		return nil, err
	}

	if o.changed(stateFileFlag) {
		cfg.StateFile = o.StateFile
	}
	if o.changed(logLevelFlag) {
		cfg.LogLevel = o.LogLevel
	}
	if o.changed(logFileFlag) {
		cfg.LogFile = o.LogFile
	}
	if o.changed(notificationHourFlag) {
		cfg.NotificationHour = o.NotificationHour
	}
	if o.changed(metricsAddrFlag) {
		cfg.MetricsAddr = o.MetricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (o *Options) changed(name string) bool {
	return o.fs != nil && o.fs.Changed(name)
}
