// Package control holds the user's dashboard selections as observable state.
package control

import (
	"github.com/i474232898/weather-dashboard/internal/state"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Controls is the Selection/Control State. The selected station is stored as
// an id and resolved against the live station list on every emission, so it
// never refers to a station missing from the latest snapshot.
type Controls struct {
	selectedID     *state.Cell[*int]
	visualization  *state.Cell[weather.VisualizationType]
	heatmapEnabled *state.Cell[bool]
	stations       *state.Cell[[]weather.Station]

	selectedStation *state.Derived[*weather.Station]
}

// View is a point-in-time copy of the controls.
type View struct {
	SelectedStationID *int                      `json:"selectedStationId"`
	SelectedStation   *weather.Station          `json:"selectedStation"`
	Visualization     weather.VisualizationType `json:"visualizationType"`
	HeatmapEnabled    bool                      `json:"heatmapEnabled"`
}

// New returns controls in their initial state: nothing selected, temperature,
// heatmap off.
func New() *Controls {
	c := &Controls{
		selectedID:     state.NewCell[*int](nil),
		visualization:  state.NewCell(weather.VisualizationTemperature),
		heatmapEnabled: state.NewCell(false),
		stations:       state.NewCell[[]weather.Station](nil),
	}
	c.selectedStation = state.Derive2[*int, []weather.Station, *weather.Station](
		c.selectedID, c.stations, lookup,
	)
	return c
}

func lookup(id *int, stations []weather.Station) *weather.Station {
	if id == nil {
		return nil
	}
	s, ok := weather.FindStation(stations, *id)
	if !ok {
		return nil
	}
	return &s
}

// SelectedID is the raw selected station id.
func (c *Controls) SelectedID() state.Readable[*int] { return c.selectedID }

// SelectedStation resolves the selected id against the current stations.
func (c *Controls) SelectedStation() state.Readable[*weather.Station] { return c.selectedStation }

func (c *Controls) VisualizationType() state.Readable[weather.VisualizationType] {
	return c.visualization
}

func (c *Controls) HeatmapEnabled() state.Readable[bool] { return c.heatmapEnabled }

// Stations is the station list selections are resolved against.
func (c *Controls) Stations() state.Readable[[]weather.Station] { return c.stations }

// SetSelectedStationID selects a station by id.
func (c *Controls) SetSelectedStationID(id int) {
	c.selectedID.Set(&id)
}

// ClearSelection deselects any station.
func (c *Controls) ClearSelection() {
	c.selectedID.Set(nil)
}

func (c *Controls) SetVisualizationType(t weather.VisualizationType) {
	c.visualization.Set(t)
}

func (c *Controls) SetHeatmapEnabled(enabled bool) {
	c.heatmapEnabled.Set(enabled)
}

// SetStations replaces the station list; the selected station is re-resolved.
func (c *Controls) SetStations(stations []weather.Station) {
	c.stations.Set(stations)
}

// Reset restores the initial selection, visualization type and heatmap flag.
func (c *Controls) Reset() {
	c.ClearSelection()
	c.SetVisualizationType(weather.VisualizationTemperature)
	c.SetHeatmapEnabled(false)
}

// Snapshot returns the current values.
func (c *Controls) Snapshot() View {
	var id *int
	if v := c.selectedID.Get(); v != nil {
		cp := *v
		id = &cp
	}
	return View{
		SelectedStationID: id,
		SelectedStation:   c.selectedStation.Get(),
		Visualization:     c.visualization.Get(),
		HeatmapEnabled:    c.heatmapEnabled.Get(),
	}
}

// Close detaches the derived selection.
func (c *Controls) Close() {
	c.selectedStation.Close()
}
