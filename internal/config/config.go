package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Fetch modes for page retrieval.
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	BadgerDBPath     string `mapstructure:"BADGERDB_PATH"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`
	MetricsAddr      string `mapstructure:"METRICS_ADDR"`

	// FetchMode selects how pages are retrieved: plain HTTP or a headless browser.
	FetchMode     string        `mapstructure:"FETCH_MODE"`
	FetchTimeout  time.Duration `mapstructure:"FETCH_TIMEOUT"`
	ImageTimeout  time.Duration `mapstructure:"IMAGE_TIMEOUT"`
	PageMaxBytes  int64         `mapstructure:"PAGE_MAX_BYTES"`
	ImageMaxBytes int64         `mapstructure:"IMAGE_MAX_BYTES"`

	GCInterval time.Duration `mapstructure:"GC_INTERVAL"`
}

var defaults = map[string]any{
	"TELEGRAM_BOT_TOKEN": "",
	"BADGERDB_PATH":      "./badger_data",
	"LOG_LEVEL":          "info",
	"METRICS_ADDR":       ":9090",
	"FETCH_MODE":         FetchModeHTTP,
	"FETCH_TIMEOUT":      10 * time.Second,
	"IMAGE_TIMEOUT":      10 * time.Second,
	"PAGE_MAX_BYTES":     10 << 20,
	"IMAGE_MAX_BYTES":    5 << 20,
	"GC_INTERVAL":        5 * time.Minute,
}

// LoadConfig reads configuration from file or environment variables.
// Environment variables take precedence over config.yaml in path.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine when everything comes from the environment.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c Config) Validate() error {
	if c.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	if c.BadgerDBPath == "" {
		return errors.New("BADGERDB_PATH must not be empty")
	}
	if c.FetchMode != FetchModeHTTP && c.FetchMode != FetchModeBrowser {
		return fmt.Errorf("FETCH_MODE must be %q or %q, got %q", FetchModeHTTP, FetchModeBrowser, c.FetchMode)
	}
	if c.FetchTimeout <= 0 || c.ImageTimeout <= 0 {
		return errors.New("FETCH_TIMEOUT and IMAGE_TIMEOUT must be positive")
	}
	if c.GCInterval <= 0 {
		return errors.New("GC_INTERVAL must be positive")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
