// Package config loads CodeAtlas settings from a YAML file, CODEATLAS_
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/codeatlas/pkg/gitlib"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
)

// Config is the top-level configuration. Field tags use mapstructure for
// viper unmarshalling.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	History       HistoryConfig       `mapstructure:"history"`
	Visualize     VisualizeConfig     `mapstructure:"visualize"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig holds the visualization server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// HistoryConfig selects and tunes the history backend.
type HistoryConfig struct {
	Backend     string `mapstructure:"backend"`
	GitBinary   string `mapstructure:"git_binary"`
	EagerIndex  bool   `mapstructure:"eager_index"`
	FirstParent bool   `mapstructure:"first_parent"`
	Limit       int    `mapstructure:"limit"`
	// Since is a duration ("720h"), RFC 3339 time or date.
	Since string `mapstructure:"since"`
}

// Options converts the settings to reader options.
func (h HistoryConfig) Options() (history.Options, error) {
	opts := history.Options{
		Backend:     h.Backend,
		GitBinary:   h.GitBinary,
		FirstParent: h.FirstParent,
		Limit:       h.Limit,
	}

	if h.Since != "" {
		since, err := gitlib.ParseTime(h.Since)
		if err != nil {
			return history.Options{}, fmt.Errorf("history.since: %w", err)
		}

		opts.Since = &since
	}

	return opts, nil
}

// VisualizeConfig holds rendering settings shared by all surfaces.
type VisualizeConfig struct {
	HotspotLimit int    `mapstructure:"hotspot_limit"`
	Theme        string `mapstructure:"theme"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return slog.LevelInfo
	}

	return level
}

// ObservabilityConfig holds telemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Telemetry builds the observability configuration for a run mode.
func (c *Config) Telemetry(mode observability.AppMode, version string) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Mode = mode
	cfg.OTLPEndpoint = c.Observability.OTLPEndpoint
	cfg.OTLPInsecure = c.Observability.OTLPInsecure
	cfg.SampleRatio = c.Observability.SampleRatio
	cfg.LogLevel = c.Logging.SlogLevel()
	cfg.LogJSON = c.Logging.Format == LogFormatJSON
	cfg.Prometheus = mode == observability.ModeServe

	return cfg
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidPort indicates a port outside 0-65535.
	ErrInvalidPort = errors.New("server.port must be between 0 and 65535")
	// ErrInvalidTimeout indicates a negative server timeout.
	ErrInvalidTimeout = errors.New("server timeouts must be non-negative")
	// ErrInvalidBackend indicates an unknown history backend.
	ErrInvalidBackend = errors.New("history.backend must be libgit2 or git")
	// ErrInvalidLimit indicates a negative commit limit.
	ErrInvalidLimit = errors.New("history.limit must be non-negative")
	// ErrInvalidHotspotLimit indicates a non-positive hotspot limit.
	ErrInvalidHotspotLimit = errors.New("visualize.hotspot_limit must be positive")
	// ErrInvalidTheme indicates an unknown theme.
	ErrInvalidTheme = errors.New("visualize.theme must be dark or light")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
	// ErrInvalidLogFormat indicates an unknown log format.
	ErrInvalidLogFormat = errors.New("logging.format must be text or json")
	// ErrInvalidSampleRatio indicates a ratio outside [0, 1].
	ErrInvalidSampleRatio = errors.New("observability.sample_ratio must be between 0 and 1")
)

const maxPort = 65535

// Validate checks every field and joins all violations.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > maxPort {
		errs = append(errs, ErrInvalidPort)
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		errs = append(errs, ErrInvalidTimeout)
	}

	switch c.History.Backend {
	case history.BackendLibgit2, history.BackendGit:
	default:
		errs = append(errs, ErrInvalidBackend)
	}

	if c.History.Limit < 0 {
		errs = append(errs, ErrInvalidLimit)
	}

	if c.Visualize.HotspotLimit <= 0 {
		errs = append(errs, ErrInvalidHotspotLimit)
	}

	switch plotpage.Theme(c.Visualize.Theme) {
	case plotpage.ThemeDark, plotpage.ThemeLight:
	default:
		errs = append(errs, ErrInvalidTheme)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ErrInvalidLogLevel)
	}

	switch c.Logging.Format {
	case LogFormatText, LogFormatJSON:
	default:
		errs = append(errs, ErrInvalidLogFormat)
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		errs = append(errs, ErrInvalidSampleRatio)
	}

	return errors.Join(errs...)
}
