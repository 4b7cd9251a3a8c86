// Package poller drives periodic fetches of the weather feed and publishes the
// latest snapshot, fetch state and user-facing error message.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/atomic"

	"github.com/i474232898/weather-dashboard/internal/state"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/buienradar"
)

// State is the driver's fetch state.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateRetrying State = "retrying"
	StateFailed   State = "failed"
)

// Fetcher retrieves one report. Retries happen inside the fetcher.
type Fetcher interface {
	Fetch(ctx context.Context) (weather.Report, error)
}

type Config struct {
	Interval time.Duration
	// Timeout bounds a single fetch including its retries.
	Timeout time.Duration
}

// Driver periodically fetches the feed.
type Driver struct {
	fetcher   Fetcher
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	scheduler *gocron.Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	state    *state.Cell[State]
	snapshot *state.Cell[*weather.Snapshot]
	errMsg   *state.Cell[*string]

	enabled  *atomic.Bool
	started  *atomic.Bool
	fetches  *atomic.Int64
	failures *atomic.Int64

	// fetchMu keeps manual and scheduled fetches from overlapping.
	fetchMu sync.Mutex
	now     func() time.Time
}

func New(fetcher Fetcher, cfg Config, logger *slog.Logger) *Driver {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Driver{
		fetcher:   fetcher,
		interval:  cfg.Interval,
		timeout:   cfg.Timeout,
		logger:    logger,
		scheduler: gocron.NewScheduler(time.UTC),
		ctx:       ctx,
		cancel:    cancel,
		state:     state.NewCell(StateIdle),
		snapshot:  state.NewCell[*weather.Snapshot](nil),
		errMsg:    state.NewCell[*string](nil),
		enabled:   atomic.NewBool(true),
		started:   atomic.NewBool(false),
		fetches:   atomic.NewInt64(0),
		failures:  atomic.NewInt64(0),
		now:       time.Now,
	}
}

// State is the current fetch state.
func (d *Driver) State() state.Readable[State] { return d.state }

// Snapshot is the last successful snapshot; nil until the first success.
func (d *Driver) Snapshot() state.Readable[*weather.Snapshot] { return d.snapshot }

// Error is the user-facing message of the last terminal failure.
func (d *Driver) Error() state.Readable[*string] { return d.errMsg }

// Start schedules the fetch job. The first run is immediate and runs never
// overlap.
func (d *Driver) Start() error {
	if !d.started.CAS(false, true) {
		return nil
	}

	_, err := d.scheduler.Every(d.interval).SingletonMode().Do(func() {
		if !d.enabled.Load() {
			d.logger.Debug("polling disabled, skipping fetch")
			return
		}
		_ = d.FetchNow(d.ctx)
	})
	if err != nil {
		d.started.Store(false)
		return err
	}

	d.scheduler.StartAsync()
	d.logger.Info("polling started", "interval", d.interval)
	return nil
}

// Stop stops scheduling and cancels an in-flight fetch.
func (d *Driver) Stop() {
	d.cancel()
	if d.started.CAS(true, false) {
		d.scheduler.Stop()
	}
}

// SetPollingEnabled pauses or resumes scheduled fetches. A fetch already in
// flight is not cancelled.
func (d *Driver) SetPollingEnabled(enabled bool) {
	d.enabled.Store(enabled)
	d.logger.Info("polling toggled", "enabled", enabled)
}

func (d *Driver) PollingEnabled() bool { return d.enabled.Load() }

// NoteRetry marks the driver as retrying. Wire it to the fetcher's retry hook.
func (d *Driver) NoteRetry(attempt int, err error) {
	d.state.Set(StateRetrying)
	d.logger.Warn("fetch attempt failed, retrying", "attempt", attempt, "err", err)
}

// FetchNow fetches once. On success the snapshot is published and the error
// cleared; on failure the error message is published and the snapshot kept.
func (d *Driver) FetchNow(ctx context.Context) error {
	d.fetchMu.Lock()
	defer d.fetchMu.Unlock()

	d.fetches.Inc()
	d.state.Set(StateFetching)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	report, err := d.fetcher.Fetch(ctx)
	if err != nil {
		d.failures.Inc()
		code := buienradar.StatusCode(err)
		if errors.Is(err, context.Canceled) {
			d.logger.Info("fetch cancelled")
		} else {
			d.logger.Error("fetch failed", "status", code, "err", err)
		}
		msg := ErrorMessage(code)
		d.errMsg.Set(&msg)
		d.state.Set(StateFailed)
		return err
	}

	snap := &weather.Snapshot{
		FetchedAt: d.now().UTC(),
		Stations:  report.Actual.Stations,
		Forecast:  report.Forecast.FiveDay,
	}
	if d.errMsg.Get() != nil {
		d.errMsg.Set(nil)
	}
	d.snapshot.Set(snap)
	d.state.Set(StateIdle)

	d.logger.Info("fetch completed", "stations", len(snap.Stations), "forecastDays", len(snap.Forecast))
	return nil
}

// ClearError dismisses the current error message.
func (d *Driver) ClearError() {
	if d.errMsg.Get() != nil {
		d.errMsg.Set(nil)
	}
}

// Retry clears the error, re-enables polling and fetches immediately.
func (d *Driver) Retry(ctx context.Context) error {
	d.ClearError()
	d.enabled.Store(true)
	return d.FetchNow(ctx)
}

// Status is a point-in-time view of the driver.
type Status struct {
	State          State     `json:"state"`
	PollingEnabled bool      `json:"pollingEnabled"`
	Interval       string    `json:"interval"`
	Error          *string   `json:"error"`
	LastFetchedAt  time.Time `json:"lastFetchedAt,omitempty"`
	Fetches        int64     `json:"fetches"`
	Failures       int64     `json:"failures"`
}

func (d *Driver) Status() Status {
	st := Status{
		State:          d.state.Get(),
		PollingEnabled: d.enabled.Load(),
		Interval:       d.interval.String(),
		Error:          d.errMsg.Get(),
		Fetches:        d.fetches.Load(),
		Failures:       d.failures.Load(),
	}
	if snap := d.snapshot.Get(); snap != nil {
		st.LastFetchedAt = snap.FetchedAt
	}
	return st
}
