package buienradar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const feedJSON = `{
	"actual": {
		"stationmeasurements": [
			{"stationid": 6240, "stationname": "Meetstation Amsterdam", "lat": 52.3, "lon": 4.77, "temperature": 18.5},
			{"stationid": 6260, "stationname": "Meetstation De Bilt", "lat": 52.1, "lon": 5.18, "temperature": 17.1},
			{"stationid": 6240, "stationname": "Meetstation Amsterdam (dup)", "lat": 52.3, "lon": 4.77}
		]
	},
	"forecast": {"fivedayforecast": [{"day": "2025-03-03T00:00:00", "rainChance": 30}]}
}`

func newTestClient(url string, cfg Config) *Client {
	cfg.URL = url
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	return NewClient(&http.Client{Timeout: 2 * time.Second}, cfg, nil)
}

func TestFetchDecodesAndDedupes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, feedJSON)
	}))
	defer srv.Close()

	report, err := newTestClient(srv.URL, Config{MaxRetries: 3}).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stations := report.Actual.Stations
	if len(stations) != 2 {
		t.Fatalf("expected 2 unique stations, got %d", len(stations))
	}
	if stations[0].Name != "Meetstation Amsterdam" {
		t.Fatalf("expected first occurrence to win, got %q", stations[0].Name)
	}
	if len(report.Forecast.FiveDay) != 1 {
		t.Fatalf("expected 1 forecast day, got %d", len(report.Forecast.FiveDay))
	}
}

func TestFetchRetriesThenFailsWithStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var retries []int
	client := newTestClient(srv.URL, Config{
		MaxRetries: 3,
		OnRetry:    func(attempt int, err error) { retries = append(retries, attempt) },
	})

	_, err := client.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := atomic.LoadInt32(&hits); got != 4 {
		t.Fatalf("expected 4 attempts (1 + 3 retries), got %d", got)
	}
	if StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d (%v)", StatusCode(err), err)
	}
	if len(retries) != 3 || retries[2] != 3 {
		t.Fatalf("expected retry callbacks 1..3, got %v", retries)
	}
}

func TestFetchRecoversOnRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, feedJSON)
	}))
	defer srv.Close()

	report, err := newTestClient(srv.URL, Config{MaxRetries: 3}).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Actual.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(report.Actual.Stations))
	}
}

func TestFetchUnreachableHasStatusZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, Config{MaxRetries: 1}).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if StatusCode(err) != 0 {
		t.Fatalf("expected status 0 for transport failure, got %d", StatusCode(err))
	}
}

func TestFetchGraphQLMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
			t.Errorf("expected graphql query body, got %v", err)
		}
		_, _ = io.WriteString(w, `{"data": {"weatherData": `+feedJSON+`}}`)
	}))
	defer srv.Close()

	report, err := newTestClient(srv.URL, Config{Mode: "post"}).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Actual.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(report.Actual.Stations))
	}
}

func TestFetchCircuitOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, Config{MaxRetries: 0, BreakerFailures: 2, BreakerTimeout: time.Hour})

	for i := 0; i < 2; i++ {
		if _, err := client.Fetch(context.Background()); StatusCode(err) != http.StatusInternalServerError {
			t.Fatalf("attempt %d: expected 500, got %v", i, err)
		}
	}

	_, err := client.Fetch(context.Background())
	if !errors.Is(err, errCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("expected the open circuit to report the last status 500, got %d", StatusCode(err))
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected the open circuit to skip the request, got %d hits", got)
	}
}
