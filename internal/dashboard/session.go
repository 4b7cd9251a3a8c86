// Package dashboard ties the poller, the user controls, the map and the
// forecast chart together into one session.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/i474232898/weather-dashboard/internal/chart"
	"github.com/i474232898/weather-dashboard/internal/control"
	"github.com/i474232898/weather-dashboard/internal/mapview"
	"github.com/i474232898/weather-dashboard/internal/poller"
	"github.com/i474232898/weather-dashboard/internal/sse"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// ErrClosed is returned by actions on a closed session.
var ErrClosed = errors.New("session closed")

type Options struct {
	Map   mapview.Options
	Chart chart.Options
	// RefreshCooldown is how long a manual refresh blocks the next one.
	RefreshCooldown time.Duration
}

func DefaultOptions() Options {
	return Options{
		Map:             mapview.DefaultOptions(),
		Chart:           chart.ForecastOptions(),
		RefreshCooldown: time.Second,
	}
}

// Session owns the dashboard state. Every mutation runs under mu, so user
// actions, snapshot arrivals and timers apply in arrival order.
//
// Control cells are only written with mu held and their subscribers must not
// take mu. Driver cells are written from fetch goroutines and their
// subscribers take mu.
type Session struct {
	mu     sync.Mutex
	logger *slog.Logger

	driver     *poller.Driver
	controls   *control.Controls
	mapScene   *mapview.Scene
	reconciler *mapview.Reconciler
	chartScene *chart.Scene
	chart      *chart.Controller
	store      *store.MemoryStore
	events     *sse.Manager

	ctx        context.Context
	cancel     context.CancelFunc
	refreshing *atomic.Bool
	cooldown   time.Duration
	hasData    bool
	closed     bool
	unsubs     []func()
}

// New builds a session over the given collaborators, creates the map and the
// chart and subscribes to the driver. It does not start polling.
func New(driver *poller.Driver, st *store.MemoryStore, events *sse.Manager, opts Options, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RefreshCooldown <= 0 {
		opts.RefreshCooldown = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		logger:     logger,
		driver:     driver,
		controls:   control.New(),
		mapScene:   mapview.NewScene(),
		chartScene: chart.NewScene(),
		store:      st,
		events:     events,
		ctx:        ctx,
		cancel:     cancel,
		refreshing: atomic.NewBool(false),
		cooldown:   opts.RefreshCooldown,
	}
	// Popup hooks fire inside reconciler calls, which already hold mu.
	s.reconciler = mapview.NewReconciler(s.mapScene, opts.Map, s.controls.SetSelectedStationID, logger.With("component", "map"))
	s.chart = chart.NewController(s.chartScene, opts.Chart, logger.With("component", "chart"))

	if err := s.reconciler.CreateMap(); err != nil {
		cancel()
		return nil, err
	}
	if err := s.chart.Create(); err != nil {
		cancel()
		s.reconciler.DestroyMap()
		return nil, err
	}

	publishControls := func() { s.events.Broadcast(sse.EventControls, s.controls.Snapshot()) }
	s.unsubs = append(s.unsubs,
		s.controls.SelectedStation().Subscribe(func(*weather.Station) { publishControls() }),
		s.controls.VisualizationType().Subscribe(func(weather.VisualizationType) { publishControls() }),
		s.controls.HeatmapEnabled().Subscribe(func(bool) { publishControls() }),
		driver.Snapshot().Subscribe(s.onSnapshot),
		driver.State().Subscribe(func(poller.State) { s.events.Broadcast(sse.EventStatus, s.Status()) }),
		driver.Error().Subscribe(func(msg *string) {
			s.events.Broadcast(sse.EventError, map[string]*string{"message": msg})
		}),
	)

	if snap := driver.Snapshot().Get(); snap != nil {
		s.onSnapshot(snap)
	}
	return s, nil
}

func (s *Session) onSnapshot(snap *weather.Snapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.store.SaveSnapshot(*snap)
	s.hasData = true
	s.controls.SetStations(snap.Stations)
	s.reconcileLocked()
	s.chart.Update(weather.DayLabels(snap.Forecast), chart.ForecastDatasets(snap.Forecast))

	s.events.Broadcast(sse.EventSnapshot, weather.SummarizeSnapshot(snap.Stations))
	s.events.Broadcast(sse.EventChart, s.chartScene.View())
}

// reconcileLocked redraws the map for the current controls. Nothing is drawn
// before the first snapshot.
func (s *Session) reconcileLocked() {
	if !s.hasData {
		return
	}
	err := s.reconciler.Reconcile(
		s.controls.Stations().Get(),
		s.controls.VisualizationType().Get(),
		s.controls.HeatmapEnabled().Get(),
	)
	if err != nil {
		s.logger.Error("map reconcile failed", "err", err)
		return
	}
	s.publishMapLocked()
}

func (s *Session) publishMapLocked() {
	s.events.Broadcast(sse.EventMap, s.mapScene.View())
}

// SelectStation selects a station by id. An id missing from the latest
// snapshot clears the selection and resets the map. In marker mode the map
// flies to the station and opens its popup. It reports whether the station
// exists.
func (s *Session) SelectStation(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	station, ok := weather.FindStation(s.controls.Stations().Get(), id)
	if !ok {
		s.controls.ClearSelection()
		err := s.reconciler.ResetMap()
		s.publishMapLocked()
		return false, err
	}

	s.controls.SetSelectedStationID(id)
	if !s.controls.HeatmapEnabled().Get() {
		if err := s.reconciler.FocusStation(station); err != nil {
			return true, err
		}
		if err := s.reconciler.ClosePopup(); err != nil {
			return true, err
		}
		if _, err := s.reconciler.OpenPopup(station.StationID); err != nil {
			return true, err
		}
	}
	s.publishMapLocked()
	return true, nil
}

// ClearSelection deselects the station and resets the map view.
func (s *Session) ClearSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.controls.ClearSelection()
	err := s.reconciler.ResetMap()
	s.publishMapLocked()
	return err
}

// ResetView closes popups and returns the map to its default view. The
// selection is left alone.
func (s *Session) ResetView() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.reconciler.ResetMap(); err != nil {
		return err
	}
	s.publishMapLocked()
	return nil
}

// SetVisualizationType changes the measured quantity and redraws the map.
func (s *Session) SetVisualizationType(t weather.VisualizationType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.controls.SetVisualizationType(t)
	s.reconcileLocked()
	return nil
}

// SetHeatmapEnabled switches between markers and heatmap. The map view is
// reset before redrawing.
func (s *Session) SetHeatmapEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.controls.SetHeatmapEnabled(enabled)
	if err := s.reconciler.ResetMap(); err != nil {
		return err
	}
	s.reconcileLocked()
	return nil
}

// Reset restores the default controls, view and markers.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.controls.Reset()
	if err := s.reconciler.ResetMap(); err != nil {
		return err
	}
	s.reconcileLocked()
	s.publishMapLocked()
	return nil
}

// Refresh starts a manual fetch unless one was started within the cooldown.
// The returned channel yields the fetch result.
func (s *Session) Refresh() (bool, <-chan error) {
	if !s.refreshing.CAS(false, true) {
		return false, nil
	}
	time.AfterFunc(s.cooldown, func() { s.refreshing.Store(false) })

	done := make(chan error, 1)
	go func() {
		done <- s.driver.FetchNow(s.ctx)
	}()
	return true, done
}

// Refreshing reports whether the refresh cooldown is active.
func (s *Session) Refreshing() bool { return s.refreshing.Load() }

// OpenPopup opens a station's popup, as when its marker is clicked.
func (s *Session) OpenPopup(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	ok, err := s.reconciler.OpenPopup(id)
	if ok {
		s.publishMapLocked()
	}
	return ok, err
}

// ClosePopup closes the open popup.
func (s *Session) ClosePopup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.reconciler.ClosePopup(); err != nil {
		return err
	}
	s.publishMapLocked()
	return nil
}

// SetDatasetHidden records a legend toggle on the forecast chart.
func (s *Session) SetDatasetHidden(label string, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.chart.SetHidden(label, hidden); err != nil {
		return err
	}
	s.events.Broadcast(sse.EventChart, s.chartScene.View())
	return nil
}

func (s *Session) SetPollingEnabled(enabled bool) {
	s.driver.SetPollingEnabled(enabled)
	s.events.Broadcast(sse.EventStatus, s.Status())
}

// Retry dismisses the error and fetches again in the background.
func (s *Session) Retry() <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.driver.Retry(s.ctx)
	}()
	return done
}

// Status combines the driver status with the refresh cooldown.
type Status struct {
	poller.Status
	Refreshing bool `json:"refreshing"`
}

func (s *Session) Status() Status {
	return Status{Status: s.driver.Status(), Refreshing: s.refreshing.Load()}
}

func (s *Session) Controls() control.View { return s.controls.Snapshot() }

func (s *Session) Map() mapview.SceneView { return s.mapScene.View() }

func (s *Session) Chart() chart.SceneView { return s.chartScene.View() }

func (s *Session) Events() *sse.Manager { return s.events }

// Snapshot returns the latest snapshot.
func (s *Session) Snapshot() (weather.Snapshot, error) {
	return s.store.GetLatest()
}

// Station looks up a station in the latest snapshot.
func (s *Session) Station(id int) (weather.Station, error) {
	snap, err := s.store.GetLatest()
	if err != nil {
		return weather.Station{}, err
	}
	st, ok := weather.FindStation(snap.Stations, id)
	if !ok {
		return weather.Station{}, store.ErrNotFound
	}
	return st, nil
}

// History returns a station's stored readings between from and to.
func (s *Session) History(id int, from, to time.Time) ([]store.Reading, error) {
	return s.store.StationHistory(id, from, to)
}

// Legend describes the heatmap legend for the current visualization type.
// Range covers the values the heat layer is normalised over.
type Legend struct {
	Type    weather.VisualizationType `json:"visualizationType"`
	Label   string                    `json:"label"`
	Range   weather.Range             `json:"range"`
	Summary weather.Summary           `json:"summary"`
}

func (s *Session) Legend() (Legend, error) {
	snap, err := s.store.GetLatest()
	if err != nil {
		return Legend{}, err
	}
	t := s.controls.VisualizationType().Get()
	return Legend{
		Type:    t,
		Label:   t.Label(),
		Range:   weather.HeatRange(snap.Stations, t),
		Summary: weather.SummarizeSnapshot(snap.Stations),
	}, nil
}

// Close stops polling and tears down the chart and the map.
func (s *Session) Close() {
	s.driver.Stop()
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	for _, stop := range s.unsubs {
		stop()
	}
	s.unsubs = nil
	s.chart.Destroy()
	s.reconciler.DestroyMap()
	s.controls.Close()
	s.events.Close()
	s.logger.Info("session closed")
}
