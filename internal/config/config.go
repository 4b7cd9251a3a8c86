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

	"github.com/i474232898/weather-dashboard/internal/weather/buienradar"
)

type AppConfig struct {
	AppEnv   string     `validate:"oneof=dev prod"`
	LogLevel slog.Level `validate:"-"`

	// Feed endpoint and request mode (GET, or POST for the GraphQL gateway).
	WeatherAPIURL    string `validate:"required,url"`
	WeatherAPIMethod string `validate:"oneof=GET POST GRAPHQL"`

	// PollInterval controls how often the feed is fetched.
	PollInterval    time.Duration `validate:"gte=1s"`
	FetchRetries    int           `validate:"gte=0,lte=10"`
	FetchRetryDelay time.Duration `validate:"gte=0"`
	HTTPTimeout     time.Duration `validate:"gt=0"`

	// In-memory snapshot history retention.
	StoreMaxHistory int           // max number of snapshots (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)

	Port string `validate:"required,numeric"`
}

var validate = validator.New()

// Load reads configuration from a .env file and the environment with
// sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		AppEnv:           strings.ToLower(getenvDefault("APP_ENV", "dev")),
		WeatherAPIURL:    getenvDefault("WEATHER_API_URL", buienradar.DefaultURL),
		WeatherAPIMethod: strings.ToUpper(getenvDefault("WEATHER_API_METHOD", "GET")),
		Port:             getenvDefault("PORT", "8080"),
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"POLL_INTERVAL", "30s", &cfg.PollInterval},
		{"FETCH_RETRY_DELAY", "1s", &cfg.FetchRetryDelay},
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"STORE_MAX_AGE", "1h", &cfg.StoreMaxAge},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if cfg.FetchRetries, err = getenvInt("FETCH_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 120); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
