package config

import "time"

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Default values for every configuration key.
const (
	DefaultServerHost         = "127.0.0.1"
	DefaultServerPort         = 8765
	DefaultServerReadTimeout  = 15 * time.Second
	DefaultServerWriteTimeout = 60 * time.Second
	DefaultServerIdleTimeout  = 120 * time.Second

	DefaultHistoryBackend   = "libgit2"
	DefaultHistoryGitBinary = "git"

	DefaultHotspotLimit = 20
	DefaultTheme        = "dark"

	DefaultLogLevel  = "info"
	DefaultLogFormat = LogFormatText
)
