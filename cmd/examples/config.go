package main

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// hostConfig is what a consuming application loads to build a
// switcher.ContextOpts. Parsing config files is a host-program concern,
// never the library's own, grounded on
// internal/config/config.go viper usage.
type hostConfig struct {
	Domain      string        `mapstructure:"domain"`
	URL         string        `mapstructure:"url"`
	APIKey      string        `mapstructure:"api_key"`
	Component   string        `mapstructure:"component"`
	Environment string        `mapstructure:"environment"`
	Local       bool          `mapstructure:"local"`
	SilentMode  string        `mapstructure:"silent_mode"`
	AutoUpdate  time.Duration `mapstructure:"auto_update_interval"`

	LogOutput     string `mapstructure:"log_output"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days"`
	LogCompress   bool   `mapstructure:"log_compress"`
}

func loadHostConfig(configPath string) (hostConfig, error) {
	viper.SetDefault("url", "https://switcher-api.example.com")
	viper.SetDefault("environment", "default")
	viper.SetDefault("local", false)
	viper.SetDefault("auto_update_interval", "1m")
	viper.SetDefault("log_output", "stdout")
	viper.SetDefault("log_max_size_mb", 100)
	viper.SetDefault("log_max_backups", 3)
	viper.SetDefault("log_max_age_days", 28)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return hostConfig{}, err
			}
		}
	}

	var cfg hostConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return hostConfig{}, err
	}
	return cfg, nil
}
