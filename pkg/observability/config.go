// Package observability wires OpenTelemetry tracing and metrics, the
// Prometheus scrape endpoint and structured logging for every CodeAtlas
// surface (CLI, TUI, MCP, HTTP server).
package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is one-shot command execution.
	ModeCLI AppMode = "cli"
	// ModeTUI is the interactive terminal viewer.
	ModeTUI AppMode = "tui"
	// ModeMCP is the MCP stdio server.
	ModeMCP AppMode = "mcp"
	// ModeServe is the visualization HTTP server.
	ModeServe AppMode = "serve"
)

const (
	defaultServiceName        = "codeatlas"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "dev").
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables export.
	OTLPEndpoint string

	// OTLPHeaders are extra gRPC metadata headers for the exporters.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP connection.
	OTLPInsecure bool

	// SampleRatio is the trace sampling ratio; zero samples every root span.
	SampleRatio float64

	// Prometheus exposes collected metrics through Providers.MetricsHandler.
	Prometheus bool

	// LogLevel is the minimum slog severity.
	LogLevel slog.Level

	// LogJSON switches log output to JSON.
	LogJSON bool

	// LogOutput receives log records. Nil means stderr.
	LogOutput io.Writer

	// ShutdownTimeoutSec bounds the flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
