package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Feeds    FeedsConfig    `mapstructure:"feeds"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type RefreshConfig struct {
	Cron string `mapstructure:"cron"`
}

type FeedsConfig struct {
	HackerNews bool `mapstructure:"hackernews"`
	Lobsters   bool `mapstructure:"lobsters"`
	Limit      int  `mapstructure:"limit"`
}

// Load reads configuration from the yaml file at path (optional) and from
// LINKTRAY_* environment variables. A missing file is fine; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("linktray")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LINKTRAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "127.0.0.1:8347")
	v.SetDefault("database.path", "linktray.db")
	v.SetDefault("refresh.cron", "@every 15m")
	v.SetDefault("feeds.hackernews", true)
	v.SetDefault("feeds.lobsters", true)
	v.SetDefault("feeds.limit", 30)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
