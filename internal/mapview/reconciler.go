package mapview

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrMapNotCreated is returned by map operations before CreateMap.
	ErrMapNotCreated = errors.New("map has not been created")
	// ErrMapAlreadyCreated is returned by a second CreateMap.
	ErrMapAlreadyCreated = errors.New("map already created")
)

// Reconciler is the only writer to the rendering surface. On each refresh it
// rebuilds either the station markers or the heat layer, never both.
//
// It is not safe for concurrent use; callers serialise access.
type Reconciler struct {
	surface Surface
	opts    Options
	logger  *slog.Logger

	// onSelect is told which station's popup the user opened.
	onSelect func(stationID int)

	created bool
	markers map[int]*Marker
	heat    *HeatLayer
	// openID is the station whose popup is open; its marker survives refreshes.
	openID *int
}

// NewReconciler creates a reconciler over surface. onSelect may be nil.
func NewReconciler(surface Surface, opts Options, onSelect func(stationID int), logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		surface:  surface,
		opts:     opts,
		onSelect: onSelect,
		logger:   logger,
		markers:  make(map[int]*Marker),
	}
}

// CreateMap creates the surface at the default view and adds the tile layer.
func (r *Reconciler) CreateMap() error {
	if r.created {
		return ErrMapAlreadyCreated
	}
	if err := r.surface.CreateMap(r.opts); err != nil {
		return err
	}
	r.surface.AddTileLayer(r.opts.Tiles)
	r.created = true
	return nil
}

// DestroyMap removes every layer and releases the surface.
func (r *Reconciler) DestroyMap() {
	if !r.created {
		return
	}
	r.clearMarkers(false)
	r.clearHeat()
	r.surface.DestroyMap()
	r.created = false
}

// Reconcile brings the surface in line with a snapshot in the requested mode.
func (r *Reconciler) Reconcile(stations []weather.Station, t weather.VisualizationType, heatmap bool) error {
	if heatmap {
		return r.UpdateHeatmap(stations, t)
	}
	return r.UpdateMarkers(stations, t)
}

// UpdateMarkers switches to marker mode. Every marker is rebuilt except the one
// whose popup is open, which is left as is so the popup stays open.
func (r *Reconciler) UpdateMarkers(stations []weather.Station, t weather.VisualizationType) error {
	if !r.created {
		return ErrMapNotCreated
	}

	r.clearHeat()
	r.clearMarkers(true)

	for _, s := range stations {
		if _, kept := r.markers[s.StationID]; kept {
			continue
		}
		m := r.buildMarker(s, t)
		r.markers[s.StationID] = m
		r.surface.AddMarker(m)
	}

	r.logger.Debug("markers updated", "stations", len(stations), "markers", len(r.markers), "type", t)
	return nil
}

// UpdateHeatmap switches to heatmap mode: all markers go, open popup included,
// and a single new heat layer replaces any previous one.
func (r *Reconciler) UpdateHeatmap(stations []weather.Station, t weather.VisualizationType) error {
	if !r.created {
		return ErrMapNotCreated
	}

	r.clearMarkers(false)
	r.clearHeat()

	r.heat = &HeatLayer{
		Points: weather.HeatPoints(stations, t),
		Style:  r.opts.Heat,
	}
	r.surface.AddHeatLayer(r.heat)

	r.logger.Debug("heatmap updated", "stations", len(stations), "points", len(r.heat.Points), "type", t)
	return nil
}

// FlyTo animates the view to pos.
func (r *Reconciler) FlyTo(pos weather.Position, zoom int) error {
	if !r.created {
		return ErrMapNotCreated
	}
	r.surface.FlyTo(pos, zoom)
	return nil
}

// FocusStation flies to a station at the focus zoom level.
func (r *Reconciler) FocusStation(s weather.Station) error {
	return r.FlyTo(s.Position(), r.opts.FocusZoom)
}

// OpenPopupAt closes any open popup, then opens the popup of the marker at
// exactly pos. It reports whether such a marker exists.
func (r *Reconciler) OpenPopupAt(pos weather.Position) (bool, error) {
	if !r.created {
		return false, ErrMapNotCreated
	}

	r.surface.ClosePopup()

	for _, id := range r.markerIDs() {
		m := r.markers[id]
		if m.Position == pos {
			r.surface.OpenPopup(m)
			return true, nil
		}
	}
	return false, nil
}

// OpenPopup opens the popup of a station's marker.
func (r *Reconciler) OpenPopup(stationID int) (bool, error) {
	if !r.created {
		return false, ErrMapNotCreated
	}
	m, ok := r.markers[stationID]
	if !ok {
		return false, nil
	}
	r.surface.OpenPopup(m)
	return true, nil
}

// ClosePopup closes the open popup, if any.
func (r *Reconciler) ClosePopup() error {
	if !r.created {
		return ErrMapNotCreated
	}
	r.surface.ClosePopup()
	return nil
}

// ResetMap closes popups and returns to the default view.
func (r *Reconciler) ResetMap() error {
	if !r.created {
		return ErrMapNotCreated
	}
	r.surface.ClosePopup()
	r.surface.FlyTo(r.opts.Center, r.opts.Zoom)
	return nil
}

// Created reports whether the surface exists.
func (r *Reconciler) Created() bool { return r.created }

// MarkerCount is the number of markers on the surface.
func (r *Reconciler) MarkerCount() int { return len(r.markers) }

// HasHeatLayer reports whether the heat layer is on the surface.
func (r *Reconciler) HasHeatLayer() bool { return r.heat != nil }

// OpenStationID returns the station whose popup is open.
func (r *Reconciler) OpenStationID() (int, bool) {
	if r.openID == nil {
		return 0, false
	}
	return *r.openID, true
}

func (r *Reconciler) buildMarker(s weather.Station, t weather.VisualizationType) *Marker {
	value := weather.ValueFor(t, s)
	label, ok := weather.ValueWithUnitFor(t, s)
	if !ok {
		label = weather.MissingValue
	}
	color := weather.ColorFor(t, value)

	iconURL := s.FullIconURL
	if iconURL == "" {
		iconURL = s.IconURL
	}

	id := s.StationID
	pos := s.Position()

	m := &Marker{
		StationID: id,
		Position:  pos,
		Icon: Icon{
			IconURL: iconURL,
			Color:   color,
			Label:   label,
			HTML:    weather.MarkerIconHTML(iconURL, color, label),
		},
		Popup: weather.PopupHTML(s),
	}
	m.OnPopupOpen = func() {
		r.openID = &id
		if r.onSelect != nil {
			r.onSelect(id)
		}
		r.surface.FlyTo(pos, r.opts.FocusZoom)
	}
	m.OnPopupClose = func() {
		if r.openID != nil && *r.openID == id {
			r.openID = nil
		}
	}
	return m
}

// clearMarkers removes markers from the surface. With keepOpen the marker of
// the open popup stays.
func (r *Reconciler) clearMarkers(keepOpen bool) {
	for _, id := range r.markerIDs() {
		if keepOpen && r.openID != nil && *r.openID == id {
			continue
		}
		r.surface.RemoveMarker(r.markers[id])
		delete(r.markers, id)
	}
	if !keepOpen {
		r.openID = nil
	}
}

func (r *Reconciler) clearHeat() {
	if r.heat == nil {
		return
	}
	r.surface.RemoveHeatLayer(r.heat)
	r.heat = nil
}

func (r *Reconciler) markerIDs() []int {
	ids := make([]int, 0, len(r.markers))
	for id := range r.markers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
