package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/buienradar"
)

type fakeFetcher struct {
	calls  atomic.Int32
	report weather.Report
	err    error
	called chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context) (weather.Report, error) {
	f.calls.Add(1)
	if f.called != nil {
		select {
		case f.called <- struct{}{}:
		default:
		}
	}
	return f.report, f.err
}

func report(ids ...int) weather.Report {
	var r weather.Report
	for _, id := range ids {
		r.Actual.Stations = append(r.Actual.Stations, weather.Station{StationID: id})
	}
	r.Forecast.FiveDay = []weather.Forecast{{RainChance: 20}}
	return r
}

func TestErrorMessageTable(t *testing.T) {
	is := is.New(t)

	is.Equal(ErrorMessage(0), "Unable to connect to weather service. Please check your internet connection.")
	is.Equal(ErrorMessage(401), "Weather data not found. Please try again.")
	is.Equal(ErrorMessage(403), "You do not have permission to access this resource.")
	is.Equal(ErrorMessage(404), "The requested resource could not be found.")
	is.Equal(ErrorMessage(500), "Weather service is temporarily unavailable. Please try again later.")
	is.Equal(ErrorMessage(502), "Failed to load weather data. Please refresh the page.")
	is.Equal(ErrorMessage(503), MessageDefault)
}

func TestFetchNowPublishesSnapshot(t *testing.T) {
	is := is.New(t)
	f := &fakeFetcher{report: report(1, 2)}
	d := New(f, Config{}, nil)
	fixed := time.Date(2025, 3, 3, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	d.now = func() time.Time { return fixed }

	var states []State
	d.State().Subscribe(func(s State) { states = append(states, s) })

	is.NoErr(d.FetchNow(context.Background()))

	snap := d.Snapshot().Get()
	is.True(snap != nil)
	is.Equal(len(snap.Stations), 2)
	is.Equal(len(snap.Forecast), 1)
	is.Equal(snap.FetchedAt, fixed.UTC())
	is.True(d.Error().Get() == nil)
	is.Equal(states, []State{StateFetching, StateIdle})
}

// Four failing attempts with status 500 end in exactly one error emission and
// leave the snapshot untouched.
func TestTerminalFailurePublishesOneError(t *testing.T) {
	is := is.New(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var d *Driver
	client := buienradar.NewClient(srv.Client(), buienradar.Config{
		URL:        srv.URL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		OnRetry:    func(attempt int, err error) { d.NoteRetry(attempt, err) },
	}, nil)
	d = New(client, Config{}, nil)

	var errs []string
	d.Error().Subscribe(func(msg *string) {
		if msg != nil {
			errs = append(errs, *msg)
		}
	})
	snapshots := 0
	d.Snapshot().Subscribe(func(*weather.Snapshot) { snapshots++ })
	var states []State
	d.State().Subscribe(func(s State) { states = append(states, s) })

	err := d.FetchNow(context.Background())
	is.True(err != nil)
	is.Equal(buienradar.StatusCode(err), http.StatusInternalServerError)

	is.Equal(hits.Load(), int32(4))
	is.Equal(errs, []string{MessageServerError})
	is.Equal(snapshots, 0)
	is.True(d.Snapshot().Get() == nil)
	is.Equal(states[0], StateFetching)
	is.Equal(states[1], StateRetrying)
	is.Equal(states[len(states)-1], StateFailed)
	is.Equal(d.Status().Failures, int64(1))
}

func TestServerErrorMessageSurvivesOpenCircuit(t *testing.T) {
	is := is.New(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := buienradar.NewClient(srv.Client(), buienradar.Config{
		URL:        srv.URL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, nil)
	d := New(client, Config{}, nil)

	// Four attempts per poll; the default breaker opens during the third poll.
	for i := 0; i < 5; i++ {
		err := d.FetchNow(context.Background())
		is.Equal(buienradar.StatusCode(err), http.StatusInternalServerError)
		msg := d.Error().Get()
		is.True(msg != nil)
		is.Equal(*msg, MessageServerError)
	}
	is.True(hits.Load() < 20) // the open circuit skipped requests
}

func TestFailureKeepsPreviousSnapshot(t *testing.T) {
	is := is.New(t)
	f := &fakeFetcher{report: report(7)}
	d := New(f, Config{}, nil)

	is.NoErr(d.FetchNow(context.Background()))
	first := d.Snapshot().Get()

	f.err = errors.New("dial tcp: connection refused")
	is.True(d.FetchNow(context.Background()) != nil)

	is.True(d.Snapshot().Get() == first)
	is.Equal(*d.Error().Get(), MessageUnreachable)
	is.Equal(d.State().Get(), StateFailed)
}

func TestRetryClearsErrorAndReenables(t *testing.T) {
	is := is.New(t)
	f := &fakeFetcher{err: errors.New("boom")}
	d := New(f, Config{}, nil)

	_ = d.FetchNow(context.Background())
	d.SetPollingEnabled(false)
	is.True(d.Error().Get() != nil)

	var emitted []*string
	d.Error().Subscribe(func(msg *string) { emitted = append(emitted, msg) })

	f.err = nil
	f.report = report(1)
	is.NoErr(d.Retry(context.Background()))

	is.True(d.PollingEnabled())
	is.True(d.Error().Get() == nil)
	is.Equal(len(emitted), 1) // cleared once, not again on success
	is.True(d.Snapshot().Get() != nil)
}

func TestScheduledFirstRunIsImmediate(t *testing.T) {
	is := is.New(t)
	f := &fakeFetcher{report: report(1), called: make(chan struct{}, 1)}
	d := New(f, Config{Interval: time.Hour}, nil)

	is.NoErr(d.Start())
	defer d.Stop()

	select {
	case <-f.called:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an immediate fetch")
	}
}

func TestDisabledPollingSkipsScheduledFetch(t *testing.T) {
	is := is.New(t)
	f := &fakeFetcher{report: report(1), called: make(chan struct{}, 1)}
	d := New(f, Config{Interval: time.Hour}, nil)
	d.SetPollingEnabled(false)

	is.NoErr(d.Start())
	defer d.Stop()

	select {
	case <-f.called:
		t.Fatal("fetch ran while polling was disabled")
	case <-time.After(200 * time.Millisecond):
	}
	is.Equal(f.calls.Load(), int32(0))
}
