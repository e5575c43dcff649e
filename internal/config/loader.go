package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName      = ".codeatlas"
	configType      = "yaml"
	envPrefix       = "CODEATLAS"
	envKeySeparator = "_"
)

// LoadConfig loads configuration from file, env vars and defaults. An
// explicit configPath must exist; otherwise .codeatlas.yaml is searched in
// the working directory and $HOME, and a missing file means defaults.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("server.host", DefaultServerHost)
	viperCfg.SetDefault("server.port", DefaultServerPort)
	viperCfg.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	viperCfg.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	viperCfg.SetDefault("server.idle_timeout", DefaultServerIdleTimeout)

	viperCfg.SetDefault("history.backend", DefaultHistoryBackend)
	viperCfg.SetDefault("history.git_binary", DefaultHistoryGitBinary)
	viperCfg.SetDefault("history.eager_index", false)
	viperCfg.SetDefault("history.first_parent", false)
	viperCfg.SetDefault("history.limit", 0)
	viperCfg.SetDefault("history.since", "")

	viperCfg.SetDefault("visualize.hotspot_limit", DefaultHotspotLimit)
	viperCfg.SetDefault("visualize.theme", DefaultTheme)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.sample_ratio", 0.0)
}
