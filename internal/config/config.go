package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Environment variable names
const (
	EnvPlaneAPIToken    = "PLANE_API_TOKEN"
	EnvPlaneBaseURL     = "PLANE_BASE_URL"
	EnvPlaneAppURL      = "PLANE_APP_URL"
	EnvPlaneWorkspace   = "PLANE_WORKSPACE"
	EnvPlaneProjectID   = "PLANE_PROJECT_ID"
	EnvTeamsWebhookURL  = "TEAMS_WEBHOOK_URL"
	EnvNotificationHour = "NOTIFICATION_HOUR"
	EnvMaxRetries       = "MAX_RETRIES"
	EnvSyncInterval     = "SYNC_INTERVAL"
	EnvStateFile        = "STATE_FILE"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFile          = "LOG_FILE"
	EnvTeamsTimeout     = "TEAMS_TIMEOUT"
	EnvPlaneHTTPRetries = "PLANE_HTTP_RETRIES"
	EnvTimezone         = "TIMEZONE"
	EnvCardStyleFile    = "CARD_STYLE_FILE"
	EnvMetricsAddr      = "METRICS_ADDR"
)

const (
	DefaultNotificationHour = 8
	DefaultMaxRetries       = 3
	DefaultSyncInterval     = 10
	DefaultLogLevel         = "info"
	DefaultTeamsTimeout     = 10 * time.Second
	DefaultPlaneHTTPRetries = 2
)

// ConfigError reports a missing or invalid setting. It is fatal at startup.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// IsConfigError reports whether err is, or wraps, a ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Config holds all settings of the service
type Config struct {
	PlaneAPIToken   string
	PlaneBaseURL    string
	PlaneAppURL     string
	PlaneWorkspace  string
	PlaneProjectID  string
	TeamsWebhookURL string

	NotificationHour int
	MaxRetries       int
	// SyncInterval is kept for compatibility with older deployments; scheduling is daily
	SyncInterval int

	StateFile     string
	LogLevel      string
	LogFile       string
	CardStyleFile string
	MetricsAddr   string
	Timezone      string

	TeamsTimeout     time.Duration
	PlaneHTTPRetries int
}

// Load reads the configuration from the environment after applying the given
// env files. Missing env files are ignored unless they were named explicitly.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(EnvNotificationHour, DefaultNotificationHour)
	v.SetDefault(EnvMaxRetries, DefaultMaxRetries)
	v.SetDefault(EnvSyncInterval, DefaultSyncInterval)
	v.SetDefault(EnvLogLevel, DefaultLogLevel)
	v.SetDefault(EnvStateFile, DefaultStateFile())
	v.SetDefault(EnvTeamsTimeout, int(DefaultTeamsTimeout/time.Second))
	v.SetDefault(EnvPlaneHTTPRetries, DefaultPlaneHTTPRetries)
	v.SetDefault(EnvTimezone, "Local")

	cfg := &Config{
		PlaneAPIToken:   strings.TrimSpace(v.GetString(EnvPlaneAPIToken)),
		PlaneBaseURL:    strings.TrimRight(strings.TrimSpace(v.GetString(EnvPlaneBaseURL)), "/"),
		PlaneAppURL:     strings.TrimRight(strings.TrimSpace(v.GetString(EnvPlaneAppURL)), "/"),
		PlaneWorkspace:  strings.TrimSpace(v.GetString(EnvPlaneWorkspace)),
		PlaneProjectID:  strings.TrimSpace(v.GetString(EnvPlaneProjectID)),
		TeamsWebhookURL: strings.TrimSpace(v.GetString(EnvTeamsWebhookURL)),
		StateFile:       v.GetString(EnvStateFile),
		LogLevel:        v.GetString(EnvLogLevel),
		LogFile:         v.GetString(EnvLogFile),
		CardStyleFile:   v.GetString(EnvCardStyleFile),
		MetricsAddr:     v.GetString(EnvMetricsAddr),
		Timezone:        v.GetString(EnvTimezone),
	}

	ints := []struct {
		env    string
		target *int
	}{
		{EnvNotificationHour, &cfg.NotificationHour},
		{EnvMaxRetries, &cfg.MaxRetries},
		{EnvSyncInterval, &cfg.SyncInterval},
		{EnvPlaneHTTPRetries, &cfg.PlaneHTTPRetries},
	}
	for _, i := range ints {
		value, err := cast.ToIntE(strings.TrimSpace(v.GetString(i.env)))
		if err != nil {
			return nil, &ConfigError{Field: i.env, Message: fmt.Sprintf("%s must be an integer", fieldTitle(i.env))}
		}
		*i.target = value
	}

	timeout, err := cast.ToIntE(strings.TrimSpace(v.GetString(EnvTeamsTimeout)))
	if err != nil {
		return nil, &ConfigError{Field: EnvTeamsTimeout, Message: fmt.Sprintf("%s must be an integer number of seconds", fieldTitle(EnvTeamsTimeout))}
	}
	cfg.TeamsTimeout = time.Duration(timeout) * time.Second

	return cfg, nil
}

func loadEnvFiles(envFiles []string) error {
	explicit := len(envFiles) > 0
	if !explicit {
		envFiles = []string{".env"}
	}

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err != nil {
			if os.IsNotExist(err) && !explicit {
				continue
			}
			return &ConfigError{Field: "env-file", Message: fmt.Sprintf("cannot read env file %s: %v", envFile, err)}
		}
		// godotenv does not override variables already present in the environment
		if err := godotenv.Load(envFile); err != nil {
			return &ConfigError{Field: "env-file", Message: fmt.Sprintf("cannot parse env file %s: %v", envFile, err)}
		}
	}
	return nil
}

// Validate checks that required settings are present and that numeric
// settings are in range. The first problem found is returned as a *ConfigError.
func (c *Config) Validate() error {
	required := []struct {
		env   string
		value string
	}{
		{EnvPlaneAPIToken, c.PlaneAPIToken},
		{EnvPlaneBaseURL, c.PlaneBaseURL},
		{EnvPlaneWorkspace, c.PlaneWorkspace},
		{EnvPlaneProjectID, c.PlaneProjectID},
		{EnvTeamsWebhookURL, c.TeamsWebhookURL},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigError{Field: r.env, Message: fmt.Sprintf("%s is required", fieldTitle(r.env))}
		}
	}

	if c.NotificationHour < 0 || c.NotificationHour > 23 {
		return &ConfigError{Field: EnvNotificationHour, Message: "Notification Hour must be between 0 and 23"}
	}
	if c.MaxRetries < 1 {
		return &ConfigError{Field: EnvMaxRetries, Message: "Max Retries must be greater than 0"}
	}
	if c.SyncInterval < 1 {
		return &ConfigError{Field: EnvSyncInterval, Message: "Sync Interval must be greater than 0"}
	}
	if c.TeamsTimeout <= 0 {
		return &ConfigError{Field: EnvTeamsTimeout, Message: "Teams Timeout must be greater than 0"}
	}
	if c.PlaneHTTPRetries < 0 {
		return &ConfigError{Field: EnvPlaneHTTPRetries, Message: "Plane Http Retries must not be negative"}
	}
	if c.StateFile == "" {
		return &ConfigError{Field: EnvStateFile, Message: "State File is required"}
	}
	if _, err := c.Location(); err != nil {
		return &ConfigError{Field: EnvTimezone, Message: fmt.Sprintf("Timezone is invalid: %v", err)}
	}

	return nil
}

// Location returns the time zone the notification hour is expressed in
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// AppURL returns the base URL of the Plane web application used for issue links.
// When not configured it is derived from the API base URL.
func (c *Config) AppURL() string {
	if c.PlaneAppURL != "" {
		return c.PlaneAppURL
	}
	return strings.TrimSuffix(strings.TrimSuffix(c.PlaneBaseURL, "/api/v1"), "/api")
}

// fieldTitle turns PLANE_API_TOKEN into "Plane Api Token"
func fieldTitle(env string) string {
	return cases.Title(language.English).String(strings.ToLower(strings.ReplaceAll(env, "_", " ")))
}
