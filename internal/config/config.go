package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	HistoricalBaseURL string `yaml:"historical_base_url" validate:"required,url"`
	ForecastBaseURL   string `yaml:"forecast_base_url" validate:"required,url"`

	// Tickers refreshed by the scheduler.
	Tickers []string `yaml:"tickers" validate:"dive,required,alphanum,max=10"`

	// HistoryDays is the {DAYS} segment of the historical endpoint.
	HistoryDays int `yaml:"history_days" validate:"gte=1"`
	// HistoryLimit keeps only the last N observations (0 = all).
	HistoryLimit int `yaml:"history_limit" validate:"gte=0"`

	// ForecastDateOffset dates forecast point i as today+i+offset.
	ForecastDateOffset int    `yaml:"forecast_date_offset" validate:"oneof=0 1"`
	ForecastValueField string `yaml:"forecast_value_field" validate:"required"`
	TimeZone           string `yaml:"timezone" validate:"required"`

	HTTPTimeout     time.Duration `yaml:"http_timeout" validate:"gt=0"`
	FetchMaxRetries int           `yaml:"fetch_max_retries" validate:"gte=0,lte=10"`

	// FetchInterval controls how often the scheduler refreshes each ticker.
	FetchInterval time.Duration `yaml:"fetch_interval" validate:"gte=0"`

	// In-memory store retention.
	StoreMaxHistory int           `yaml:"store_max_history" validate:"gte=0"` // max number of series per ticker (0 = unlimited)
	StoreMaxAge     time.Duration `yaml:"store_max_age" validate:"gte=0"`     // max age of series (0 = unlimited)

	Port      string `yaml:"port" validate:"required,numeric"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json console"`
}

var validate = validator.New()

// Defaults returns the configuration used when nothing is set.
func Defaults() *AppConfig {
	return &AppConfig{
		HistoricalBaseURL:  "https://stormy-hamlet-70329.herokuapp.com",
		ForecastBaseURL:    "https://internstonksapi.herokuapp.com",
		Tickers:            []string{"JPM"},
		HistoryDays:        30,
		ForecastDateOffset: 1,
		ForecastValueField: "pred",
		TimeZone:           "UTC",
		HTTPTimeout:        10 * time.Second,
		FetchMaxRetries:    2,
		FetchInterval:      15 * time.Minute,
		StoreMaxHistory:    96, // roughly 24h at 15-minute intervals
		StoreMaxAge:        24 * time.Hour,
		Port:               "8080",
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE), then
// the environment, with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	cfg.HistoricalBaseURL = getenvDefault("HISTORICAL_BASE_URL", cfg.HistoricalBaseURL)
	cfg.ForecastBaseURL = getenvDefault("FORECAST_BASE_URL", cfg.ForecastBaseURL)

	if v := os.Getenv("TICKERS"); v != "" {
		cfg.Tickers = splitTickers(v)
	}

	cfg.ForecastValueField = getenvDefault("FORECAST_VALUE_FIELD", cfg.ForecastValueField)
	cfg.TimeZone = getenvDefault("TIMEZONE", cfg.TimeZone)
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenvDefault("LOG_FORMAT", cfg.LogFormat)

	var err error
	if cfg.HistoryDays, err = getenvInt("HISTORY_DAYS", cfg.HistoryDays); err != nil {
		return err
	}
	if cfg.HistoryLimit, err = getenvInt("HISTORY_LIMIT", cfg.HistoryLimit); err != nil {
		return err
	}
	if cfg.ForecastDateOffset, err = getenvInt("FORECAST_DATE_OFFSET", cfg.ForecastDateOffset); err != nil {
		return err
	}
	if cfg.FetchMaxRetries, err = getenvInt("FETCH_MAX_RETRIES", cfg.FetchMaxRetries); err != nil {
		return err
	}
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", cfg.StoreMaxHistory); err != nil {
		return err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", cfg.FetchInterval); err != nil {
		return err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", cfg.StoreMaxAge); err != nil {
		return err
	}
	return nil
}

// Validate checks field constraints and that the time zone exists.
func (c *AppConfig) Validate() error {
	for i, t := range c.Tickers {
		c.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves TimeZone.
func (c *AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}

func splitTickers(v string) []string {
	var out []string
	for _, t := range strings.Split(v, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, strings.ToUpper(t))
		}
	}
	return out
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
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
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
