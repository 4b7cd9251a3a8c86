package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/i474232898/weather-dashboard/internal/chart"
	"github.com/i474232898/weather-dashboard/internal/mapview"
	"github.com/i474232898/weather-dashboard/internal/poller"
	"github.com/i474232898/weather-dashboard/internal/sse"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

type stubFetcher struct {
	mu     sync.Mutex
	report weather.Report
	err    error
}

func (f *stubFetcher) Fetch(context.Context) (weather.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.report, f.err
}

func (f *stubFetcher) set(r weather.Report, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.report, f.err = r, err
}

func feed(temps ...float64) weather.Report {
	var r weather.Report
	for i, v := range temps {
		r.Actual.Stations = append(r.Actual.Stations, weather.Station{
			StationID:   100 + i,
			Name:        "Station",
			Lat:         51 + float64(i),
			Lon:         5 + float64(i),
			Temperature: weather.Float(v),
		})
	}
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	r.Forecast.FiveDay = []weather.Forecast{
		{Day: weather.FeedTime{Time: day}, MaxTemperatureMax: 11, MinTemperatureMin: 2, RainChance: 40},
		{Day: weather.FeedTime{Time: day.AddDate(0, 0, 1)}, MaxTemperatureMax: 13, MinTemperatureMin: 4, RainChance: 10},
	}
	return r
}

type harness struct {
	fetcher *stubFetcher
	driver  *poller.Driver
	store   *store.MemoryStore
	session *Session
}

func newHarness(t *testing.T, r weather.Report) *harness {
	t.Helper()
	h := &harness{fetcher: &stubFetcher{report: r}}
	h.driver = poller.New(h.fetcher, poller.Config{Interval: time.Hour}, nil)
	h.store = store.NewMemoryStore(10, 0)

	opts := DefaultOptions()
	opts.RefreshCooldown = 300 * time.Millisecond
	s, err := New(h.driver, h.store, sse.NewManager(nil), opts, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	h.session = s
	t.Cleanup(s.Close)
	return h
}

func (h *harness) fetch(t *testing.T) {
	t.Helper()
	if err := h.driver.FetchNow(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestNothingDrawnBeforeFirstSnapshot(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5))

	is.NoErr(h.session.SetVisualizationType(weather.VisualizationWind))
	v := h.session.Map()
	is.True(v.Created)
	is.Equal(len(v.Markers), 0)
	is.True(v.Heat == nil)

	_, err := h.session.Snapshot()
	is.True(errors.Is(err, store.ErrNotFound))
}

func TestSnapshotDrivesMapChartAndStore(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5, 15, 25))

	h.fetch(t)

	v := h.session.Map()
	is.Equal(len(v.Markers), 3)
	is.Equal(v.Markers[0].Icon.Color, weather.ColorTemperatureCold)
	is.Equal(v.Markers[2].Icon.Color, weather.ColorTemperatureHot)

	c := h.session.Chart()
	is.Equal(c.Labels, []string{"Mon", "Tue"})
	is.Equal(c.Datasets[0].Data, []float64{11, 13})

	snap, err := h.session.Snapshot()
	is.NoErr(err)
	is.Equal(len(snap.Stations), 3)

	st, err := h.session.Station(101)
	is.NoErr(err)
	is.Equal(*st.Temperature, 15.0)

	_, err = h.session.Station(999)
	is.True(errors.Is(err, store.ErrNotFound))

	legend, err := h.session.Legend()
	is.NoErr(err)
	is.Equal(legend.Type, weather.VisualizationTemperature)
	is.Equal(legend.Range.Max, 25.0)
	is.Equal(legend.Summary.Ranges[weather.VisualizationTemperature].Max, 25.0)
}

func TestSelectStationSharingPosition(t *testing.T) {
	is := is.New(t)
	r := feed(5, 15)
	r.Actual.Stations[1].Lat = r.Actual.Stations[0].Lat
	r.Actual.Stations[1].Lon = r.Actual.Stations[0].Lon
	h := newHarness(t, r)
	h.fetch(t)

	found, err := h.session.SelectStation(101)
	is.NoErr(err)
	is.True(found)
	id := h.session.Map().OpenPopupStationID
	is.True(id != nil)
	is.Equal(*id, 101) // the selected station, not the lowest id at that spot
	is.Equal(*h.session.Controls().SelectedStationID, 101)
}

func TestLegendRangeFollowsHeatLayer(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(0, 5, 15))
	h.fetch(t)
	is.NoErr(h.session.SetHeatmapEnabled(true))

	legend, err := h.session.Legend()
	is.NoErr(err)
	is.Equal(legend.Range.Count, len(h.session.Map().Heat.Points))
	is.Equal(legend.Range.Min, 5.0) // a reading of exactly 0 is not drawn
	is.Equal(legend.Range.Max, 15.0)
	is.Equal(legend.Summary.Ranges[weather.VisualizationTemperature].Min, 0.0)

	is.NoErr(h.session.SetVisualizationType(weather.VisualizationWind))
	legend, err = h.session.Legend()
	is.NoErr(err)
	is.Equal(legend.Type, weather.VisualizationWind)
	is.Equal(legend.Range.Count, 0)
}

func TestSelectAbsentStationClearsAndResets(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5, 15))
	h.fetch(t)

	found, err := h.session.SelectStation(101)
	is.NoErr(err)
	is.True(found)

	found, err = h.session.SelectStation(4242)
	is.NoErr(err)
	is.True(!found)

	ctl := h.session.Controls()
	is.True(ctl.SelectedStationID == nil)
	is.True(ctl.SelectedStation == nil)

	v := h.session.Map()
	is.True(v.OpenPopupStationID == nil)
	is.Equal(v.Center, mapview.DefaultOptions().Center)
	is.Equal(v.Zoom, mapview.DefaultOptions().Zoom)
}

func TestSelectStationInMarkerMode(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5, 15))
	h.fetch(t)

	found, err := h.session.SelectStation(101)
	is.NoErr(err)
	is.True(found)

	v := h.session.Map()
	is.Equal(*v.OpenPopupStationID, 101)
	is.Equal(v.Center, weather.Position{52, 6})
	is.Equal(v.Zoom, mapview.DefaultOptions().FocusZoom)

	ctl := h.session.Controls()
	is.Equal(*ctl.SelectedStationID, 101)
	is.Equal(ctl.SelectedStation.StationID, 101)
}

func TestSelectStationInHeatmapModeOnlySelects(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5, 15))
	h.fetch(t)
	is.NoErr(h.session.SetHeatmapEnabled(true))

	found, err := h.session.SelectStation(100)
	is.NoErr(err)
	is.True(found)

	v := h.session.Map()
	is.True(v.OpenPopupStationID == nil)
	is.Equal(v.Center, mapview.DefaultOptions().Center)
	is.Equal(*h.session.Controls().SelectedStationID, 100)
}

func TestHeatmapToggleDropsOpenPopup(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5, 15, 25))
	h.fetch(t)

	opened, err := h.session.OpenPopup(102)
	is.NoErr(err)
	is.True(opened)
	is.Equal(*h.session.Controls().SelectedStationID, 102) // popup-open selects

	is.NoErr(h.session.SetHeatmapEnabled(true))
	v := h.session.Map()
	is.Equal(len(v.Markers), 0)
	is.True(v.Heat != nil)
	is.Equal(len(v.Heat.Points), 3)

	h.fetch(t) // refresh in heatmap mode replaces the layer
	is.Equal(len(h.session.Map().Markers), 0)
	is.True(h.session.Map().Heat != nil)

	is.NoErr(h.session.SetHeatmapEnabled(false))
	v = h.session.Map()
	is.Equal(len(v.Markers), 3)
	is.True(v.Heat == nil)
}

func TestOpenPopupSurvivesPoll(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5, 15))
	h.fetch(t)

	_, err := h.session.OpenPopup(100)
	is.NoErr(err)

	h.fetcher.set(feed(6, 16), nil)
	h.fetch(t)

	v := h.session.Map()
	is.Equal(*v.OpenPopupStationID, 100)
	is.Equal(v.Markers[0].Icon.Label, "5 °C")  // kept as opened
	is.Equal(v.Markers[1].Icon.Label, "16 °C") // rebuilt

	is.NoErr(h.session.ClosePopup())
	is.True(h.session.Map().OpenPopupStationID == nil)
}

func TestResetRestoresDefaults(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5, 15))
	h.fetch(t)

	_, _ = h.session.SelectStation(100)
	is.NoErr(h.session.SetVisualizationType(weather.VisualizationPressure))
	is.NoErr(h.session.SetHeatmapEnabled(true))

	is.NoErr(h.session.Reset())

	ctl := h.session.Controls()
	is.True(ctl.SelectedStationID == nil)
	is.Equal(ctl.Visualization, weather.VisualizationTemperature)
	is.True(!ctl.HeatmapEnabled)

	v := h.session.Map()
	is.Equal(len(v.Markers), 2)
	is.True(v.Heat == nil)
	is.Equal(v.Center, mapview.DefaultOptions().Center)
}

func TestRefreshIsGuardedByCooldown(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5))

	started, done := h.session.Refresh()
	is.True(started)
	is.NoErr(<-done)

	again, _ := h.session.Refresh()
	is.True(!again)
	is.True(h.session.Status().Refreshing)

	time.Sleep(600 * time.Millisecond)
	is.True(!h.session.Refreshing())

	started, done = h.session.Refresh()
	is.True(started)
	is.NoErr(<-done)
	is.Equal(h.store.Len(), 2)
}

func TestHiddenDatasetSurvivesPoll(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5))
	h.fetch(t)

	is.NoErr(h.session.SetDatasetHidden(chart.LabelMinTemp, true))
	h.fetch(t)

	ds := h.session.Chart().Datasets
	is.True(!ds[0].Hidden)
	is.True(ds[1].Hidden)
}

func TestRetryAfterFailure(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5))
	h.fetcher.set(weather.Report{}, errors.New("connection refused"))

	is.True(h.driver.FetchNow(context.Background()) != nil)
	is.Equal(*h.session.Status().Error, poller.MessageUnreachable)

	h.session.SetPollingEnabled(false)
	h.fetcher.set(feed(5), nil)

	is.NoErr(<-h.session.Retry())
	st := h.session.Status()
	is.True(st.Error == nil)
	is.True(st.PollingEnabled)
	is.Equal(len(h.session.Map().Markers), 1)
}

func TestEventsAreBroadcast(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5))
	_, ch := h.session.Events().AddClient()

	h.fetch(t)

	seen := map[string]bool{}
	for len(ch) > 0 {
		seen[(<-ch).Type] = true
	}
	is.True(seen[sse.EventSnapshot])
	is.True(seen[sse.EventMap])
	is.True(seen[sse.EventChart])
	is.True(seen[sse.EventStatus])
}

func TestClosedSessionRejectsActions(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, feed(5))

	h.session.Close()
	h.session.Close()

	_, err := h.session.SelectStation(100)
	is.True(errors.Is(err, ErrClosed))
	is.True(errors.Is(h.session.Reset(), ErrClosed))
	is.True(errors.Is(h.session.SetDatasetHidden(chart.LabelRainChance, true), ErrClosed))
	for _, d := range h.session.Chart().Datasets {
		is.True(!d.Hidden)
	}
	is.True(!h.session.Map().Created)
	is.True(!h.session.Chart().Created)
}
