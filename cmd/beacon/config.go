package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/campusbeacon/beacon/internal/model"
)

const (
	defaultOutput   = "yaml"
	defaultLogLevel = "warn"
)

// appConfig is the CLI runtime configuration, merged from defaults, the
// config file, BEACON_* environment variables and flags.
type appConfig struct {
	BaseURL    string        `mapstructure:"base-url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Email      string        `mapstructure:"email"`
	Password   string        `mapstructure:"password"`
	Output     string        `mapstructure:"output"`
	LogLevel   string        `mapstructure:"log-level"`
	LookupSize int           `mapstructure:"lookup-size"`
	LookupTTL  time.Duration `mapstructure:"lookup-ttl"`
	ConfigPath string        `mapstructure:"-"`
}

func loadConfig(configPath string, flags *pflag.FlagSet) (appConfig, error) {
	var cfg appConfig

	v := viper.New()
	v.SetEnvPrefix("BEACON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("base-url", model.DefaultBaseURL)
	v.SetDefault("timeout", model.DefaultRequestTimeout)
	v.SetDefault("output", defaultOutput)
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("lookup-size", model.DefaultLookupSize)
	v.SetDefault("lookup-ttl", model.DefaultLookupTTL)

	if flags != nil {
		for _, name := range []string{"base-url", "timeout", "email", "password", "output", "log-level"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(name, f); err != nil {
					return cfg, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, ".config", "campusbeacon", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return cfg, fmt.Errorf("invalid base-url: %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		return cfg, fmt.Errorf("invalid timeout: %s", cfg.Timeout)
	}
	switch cfg.Output {
	case "yaml", "json":
	default:
		return cfg, fmt.Errorf("invalid output: %q (want yaml or json)", cfg.Output)
	}
	if cfg.Email != "" && cfg.Password == "" {
		return cfg, errors.New("password is required when email is set")
	}
	return cfg, nil
}
