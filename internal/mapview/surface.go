// Package mapview owns the dashboard map: which station markers or which heat
// layer the rendering surface shows, and how popups behave across refreshes.
package mapview

import (
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Surface is the rendering capability the Reconciler drives. Implementations
// must fire a marker's OnPopupOpen/OnPopupClose hooks when its popup opens or
// closes, including when an open marker is removed.
type Surface interface {
	CreateMap(opts Options) error
	DestroyMap()
	AddTileLayer(layer TileLayer)
	AddMarker(m *Marker)
	RemoveMarker(m *Marker)
	AddHeatLayer(h *HeatLayer)
	RemoveHeatLayer(h *HeatLayer)
	FlyTo(pos weather.Position, zoom int)
	OpenPopup(m *Marker)
	ClosePopup()
}

// Icon is the marker badge.
type Icon struct {
	IconURL string `json:"iconUrl"`
	Color   string `json:"color"`
	Label   string `json:"label"`
	HTML    string `json:"html"`
}

// Marker is a station marker owned by the Reconciler.
type Marker struct {
	StationID int              `json:"stationId"`
	Position  weather.Position `json:"position"`
	Icon      Icon             `json:"icon"`
	Popup     string           `json:"popup"`

	OnPopupOpen  func() `json:"-"`
	OnPopupClose func() `json:"-"`
}

// HeatLayer is an intensity layer built from normalized heat points.
type HeatLayer struct {
	Points []weather.HeatPoint `json:"points"`
	Style  HeatStyle           `json:"style"`
}

// HeatStyle holds the fixed visual parameters of the heat layer.
type HeatStyle struct {
	Radius     int     `json:"radius"`
	Blur       int     `json:"blur"`
	MinOpacity float64 `json:"minOpacity"`
	MaxZoom    int     `json:"maxZoom"`
	// Gradient maps an intensity stop to a color.
	Gradient map[string]string `json:"gradient"`
}

// TileLayer is the base map tile source.
type TileLayer struct {
	URLTemplate string `json:"urlTemplate"`
	MaxZoom     int    `json:"maxZoom"`
	Attribution string `json:"attribution"`
}

// Options configures the map view.
type Options struct {
	Center    weather.Position
	Zoom      int
	FocusZoom int
	Tiles     TileLayer
	Heat      HeatStyle
}

// DefaultOptions centers on the Netherlands.
func DefaultOptions() Options {
	return Options{
		Center:    weather.Position{52.1, 5.3},
		Zoom:      8,
		FocusZoom: 9,
		Tiles: TileLayer{
			URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			MaxZoom:     15,
			Attribution: "© OpenStreetMap contributors",
		},
		Heat: HeatStyle{
			Radius:     25,
			Blur:       15,
			MinOpacity: 0.35,
			MaxZoom:    10,
			Gradient: map[string]string{
				"0.4":  "#3b82f6",
				"0.65": "#facc15",
				"1.0":  "#ef4444",
			},
		},
	}
}
