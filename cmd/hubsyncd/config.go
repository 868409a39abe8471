package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// daemonConfig is the resolved daemon configuration. Precedence, lowest to
// highest: built-in defaults, config file, HUBSYNC_* environment variables,
// command-line flags.
type daemonConfig struct {
	DBPath        string `mapstructure:"db_path"`
	Addr          string `mapstructure:"addr"`
	LogDir        string `mapstructure:"log_dir"`
	Debug         bool   `mapstructure:"debug"`
	NewsRateLimit int    `mapstructure:"news_rate_limit"`
}

// defaultHubDir returns ~/.hubsync, falling back to the working directory
// when the home directory cannot be resolved.
func defaultHubDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hubsync"
	}

	return filepath.Join(home, ".hubsync")
}

// loadConfig resolves the daemon configuration. An explicit configFile that
// does not exist is an error; the default location is optional.
func loadConfig(configFile string) (*daemonConfig, error) {
	v := viper.New()

	hubDir := defaultHubDir()
	v.SetDefault("db_path", filepath.Join(hubDir, "hubsync.db"))
	v.SetDefault("addr", ":8090")
	v.SetDefault("log_dir", filepath.Join(hubDir, "logs"))
	v.SetDefault("debug", false)
	v.SetDefault("news_rate_limit", 0)

	v.SetEnvPrefix("HUBSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName("hubsyncd")
		v.SetConfigType("yaml")
		v.AddConfigPath(hubDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf(
					"failed to read config: %w", err,
				)
			}
		}
	}

	var cfg daemonConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}
