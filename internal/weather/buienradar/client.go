package buienradar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultURL is the public Buienradar JSON feed.
const DefaultURL = "https://data.buienradar.nl/2.0/feed/json"

// Request modes. The GraphQL mode POSTs stationQuery and unwraps data.weatherData.
const (
	ModeGet     = "GET"
	ModeGraphQL = "GRAPHQL"
)

// Config configures a Client.
type Config struct {
	URL  string
	Mode string

	MaxRetries int
	RetryDelay time.Duration

	// BreakerFailures is the number of consecutive failed attempts that opens
	// the circuit. Zero uses 10.
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	OnRetry func(attempt int, err error)
}

// Client fetches weather reports from the feed.
type Client struct {
	url     string
	mode    string
	httpCfg HTTPClientConfig
	circuit *feedBreaker
	logger  *slog.Logger
}

func NewClient(httpClient *http.Client, cfg Config, logger *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	mode := ModeGet
	switch strings.ToUpper(cfg.Mode) {
	case ModeGraphQL, http.MethodPost:
		mode = ModeGraphQL
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 10
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "buienradar",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		url:  cfg.URL,
		mode: mode,
		httpCfg: HTTPClientConfig{
			Client: httpClient,
			Retry: RetryConfig{
				MaxRetries: cfg.MaxRetries,
				Delay:      cfg.RetryDelay,
			},
			OnRetry: cfg.OnRetry,
		},
		circuit: &feedBreaker{cb: cb},
		logger:  logger,
	}
}

// Fetch retrieves and decodes one report. Stations with a duplicate id are
// dropped so the snapshot keeps ids unique.
func (c *Client) Fetch(ctx context.Context) (weather.Report, error) {
	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, c.buildRequest)
	if err != nil {
		return weather.Report{}, err
	}
	defer resp.Body.Close()

	var report weather.Report
	switch c.mode {
	case ModeGraphQL:
		var payload struct {
			Data struct {
				WeatherData weather.Report `json:"weatherData"`
			} `json:"data"`
			Errors []struct {
				Message string `json:"message"`
			} `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return weather.Report{}, fmt.Errorf("decode graphql response: %w", err)
		}
		if len(payload.Errors) > 0 {
			return weather.Report{}, fmt.Errorf("graphql error: %s", payload.Errors[0].Message)
		}
		report = payload.Data.WeatherData
	default:
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			return weather.Report{}, fmt.Errorf("decode feed response: %w", err)
		}
	}

	report.Actual.Stations = c.dedupe(report.Actual.Stations)
	return report, nil
}

func (c *Client) buildRequest() (*http.Request, error) {
	if c.mode != ModeGraphQL {
		req, err := http.NewRequest(http.MethodGet, c.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	body, err := json.Marshal(map[string]string{"query": stationQuery})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) dedupe(stations []weather.Station) []weather.Station {
	seen := make(map[int]struct{}, len(stations))
	out := stations[:0]
	for _, s := range stations {
		if _, dup := seen[s.StationID]; dup {
			c.logger.Warn("dropping duplicate station", "station_id", s.StationID, "name", s.Name)
			continue
		}
		seen[s.StationID] = struct{}{}
		out = append(out, s)
	}
	return out
}
