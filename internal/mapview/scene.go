package mapview

import (
	"errors"
	"sort"
	"sync"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var errSceneExists = errors.New("scene already has a map")

// Scene is an in-memory Surface. It records what a map renderer would show so
// that a browser can mirror it and tests can inspect it.
type Scene struct {
	mu sync.RWMutex

	created   bool
	center    weather.Position
	zoom      int
	tiles     *TileLayer
	markers   map[*Marker]struct{}
	heat      *HeatLayer
	open      *Marker
	revision  uint64
	flights   int
	heatAdded int
}

// SceneView is a JSON-friendly copy of a Scene.
type SceneView struct {
	Revision           uint64           `json:"revision"`
	Created            bool             `json:"created"`
	Center             weather.Position `json:"center"`
	Zoom               int              `json:"zoom"`
	Tiles              *TileLayer       `json:"tiles,omitempty"`
	Markers            []Marker         `json:"markers"`
	Heat               *HeatLayer       `json:"heat,omitempty"`
	OpenPopupStationID *int             `json:"openPopupStationId"`
}

func NewScene() *Scene {
	return &Scene{markers: make(map[*Marker]struct{})}
}

func (s *Scene) CreateMap(opts Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.created {
		return errSceneExists
	}
	s.created = true
	s.center = opts.Center
	s.zoom = opts.Zoom
	s.revision++
	return nil
}

func (s *Scene) DestroyMap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.created = false
	s.tiles = nil
	s.markers = make(map[*Marker]struct{})
	s.heat = nil
	s.open = nil
	s.revision++
}

func (s *Scene) AddTileLayer(layer TileLayer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tiles = &layer
	s.revision++
}

func (s *Scene) AddMarker(m *Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markers[m] = struct{}{}
	s.revision++
}

// RemoveMarker closes the marker's popup first if it is open.
func (s *Scene) RemoveMarker(m *Marker) {
	s.mu.Lock()
	var closed *Marker
	if s.open == m {
		closed, s.open = m, nil
	}
	delete(s.markers, m)
	s.revision++
	s.mu.Unlock()

	if closed != nil && closed.OnPopupClose != nil {
		closed.OnPopupClose()
	}
}

func (s *Scene) AddHeatLayer(h *HeatLayer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.heat = h
	s.heatAdded++
	s.revision++
}

func (s *Scene) RemoveHeatLayer(h *HeatLayer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.heat == h {
		s.heat = nil
		s.revision++
	}
}

func (s *Scene) FlyTo(pos weather.Position, zoom int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.center = pos
	s.zoom = zoom
	s.flights++
	s.revision++
}

// OpenPopup closes any other open popup, then opens m's. Hooks run after the
// scene lock is released.
func (s *Scene) OpenPopup(m *Marker) {
	s.mu.Lock()
	if _, ok := s.markers[m]; !ok || s.open == m {
		s.mu.Unlock()
		return
	}
	prev := s.open
	s.open = m
	s.revision++
	s.mu.Unlock()

	if prev != nil && prev.OnPopupClose != nil {
		prev.OnPopupClose()
	}
	if m.OnPopupOpen != nil {
		m.OnPopupOpen()
	}
}

func (s *Scene) ClosePopup() {
	s.mu.Lock()
	prev := s.open
	if prev != nil {
		s.open = nil
		s.revision++
	}
	s.mu.Unlock()

	if prev != nil && prev.OnPopupClose != nil {
		prev.OnPopupClose()
	}
}

// View returns a copy of the scene with markers ordered by station id.
func (s *Scene) View() SceneView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := SceneView{
		Revision: s.revision,
		Created:  s.created,
		Center:   s.center,
		Zoom:     s.zoom,
		Markers:  make([]Marker, 0, len(s.markers)),
	}
	if s.tiles != nil {
		t := *s.tiles
		v.Tiles = &t
	}
	for m := range s.markers {
		v.Markers = append(v.Markers, *m)
	}
	sort.Slice(v.Markers, func(i, j int) bool { return v.Markers[i].StationID < v.Markers[j].StationID })
	if s.heat != nil {
		h := *s.heat
		v.Heat = &h
	}
	if s.open != nil {
		id := s.open.StationID
		v.OpenPopupStationID = &id
	}
	return v
}

// Revision increases on every mutation.
func (s *Scene) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// HeatLayersAdded counts AddHeatLayer calls since creation.
func (s *Scene) HeatLayersAdded() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heatAdded
}

// Flights counts FlyTo calls.
func (s *Scene) Flights() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flights
}

// Marker returns the marker of a station, if shown.
func (s *Scene) Marker(stationID int) (*Marker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for m := range s.markers {
		if m.StationID == stationID {
			return m, true
		}
	}
	return nil, false
}
