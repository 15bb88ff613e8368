package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-quota/internal/quota"
)

var validate = validator.New()

type AppConfig struct {
	WeatherAPIKey     string
	WeatherAPIBaseURL string `validate:"omitempty,url"`

	// HTTPTimeout bounds each outbound provider call.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// Quota thresholds, checked through Monitor().Validate.
	HardLimit    int64
	WarnFraction float64

	// MaxConcurrentQueries bounds in-flight requests served by the HTTP server.
	MaxConcurrentQueries int `validate:"gt=0"`

	// UsageReportInterval controls how often quota usage is logged.
	UsageReportInterval time.Duration `validate:"gt=0"`

	LogLevel string `validate:"oneof=debug info warn error"`
	Port     string `validate:"required,numeric"`
}

// fileConfig is the optional YAML overlay referenced by CONFIG_FILE.
type fileConfig struct {
	Quota struct {
		HardLimit    *int64   `yaml:"hardLimit"`
		WarnFraction *float64 `yaml:"warnFraction"`
	} `yaml:"quota"`
	UsageReportInterval  string `yaml:"usageReportInterval"`
	MaxConcurrentQueries *int   `yaml:"maxConcurrentQueries"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.WeatherAPIBaseURL = os.Getenv("WEATHERAPI_BASE_URL")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.UsageReportInterval, err = getenvDuration("USAGE_REPORT_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.HardLimit, err = getenvInt64("QUOTA_HARD_LIMIT", quota.DefaultHardLimit); err != nil {
		return nil, err
	}
	if cfg.WarnFraction, err = getenvFloat("QUOTA_WARN_FRACTION", quota.DefaultWarnFraction); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentQueries, err = getenvInt("MAX_CONCURRENT_QUERIES", 256); err != nil {
		return nil, err
	}
	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.Port = getenvDefault("PORT", "8080")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Monitor().Validate(); err != nil {
		return nil, fmt.Errorf("invalid quota configuration: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Quota.HardLimit != nil {
		c.HardLimit = *fc.Quota.HardLimit
	}
	if fc.Quota.WarnFraction != nil {
		c.WarnFraction = *fc.Quota.WarnFraction
	}
	if fc.MaxConcurrentQueries != nil {
		c.MaxConcurrentQueries = *fc.MaxConcurrentQueries
	}
	if fc.UsageReportInterval != "" {
		d, err := time.ParseDuration(fc.UsageReportInterval)
		if err != nil {
			return fmt.Errorf("invalid usageReportInterval: %w", err)
		}
		c.UsageReportInterval = d
	}
	return nil
}

// Monitor builds the quota monitor from the configured thresholds.
func (c *AppConfig) Monitor() quota.Monitor {
	return quota.Monitor{
		HardLimit:    c.HardLimit,
		WarnFraction: c.WarnFraction,
	}
}

// SlogLevel maps LogLevel to a slog level.
func (c *AppConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
