package weather

import (
	"errors"
	"fmt"
	"time"
)

// VisualizationType selects which station measurement drives marker color,
// marker label and heatmap intensity.
type VisualizationType string

const (
	VisualizationTemperature VisualizationType = "temperature"
	VisualizationWind        VisualizationType = "wind"
	VisualizationPressure    VisualizationType = "pressure"
)

// ErrUnknownVisualization is returned when parsing an unsupported visualization tag.
var ErrUnknownVisualization = errors.New("unknown visualization type")

// VisualizationTypes lists the supported types in display order.
func VisualizationTypes() []VisualizationType {
	return []VisualizationType{VisualizationTemperature, VisualizationWind, VisualizationPressure}
}

// ParseVisualizationType validates a raw tag coming from a request or a flag.
func ParseVisualizationType(s string) (VisualizationType, error) {
	switch t := VisualizationType(s); t {
	case VisualizationTemperature, VisualizationWind, VisualizationPressure:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVisualization, s)
	}
}

// Position is a [lat, lon] pair.
type Position [2]float64

func (p Position) Lat() float64 { return p[0] }
func (p Position) Lon() float64 { return p[1] }

// Station is a single weather station reading from the feed.
// Measurement fields are nil when the feed omits them.
type Station struct {
	StationID          int      `json:"stationid"`
	Name               string   `json:"stationname"`
	Region             string   `json:"regio"`
	Timestamp          FeedTime `json:"timestamp"`
	WeatherDescription string   `json:"weatherdescription,omitempty"`
	IconURL            string   `json:"iconurl,omitempty"`
	FullIconURL        string   `json:"fullIconUrl,omitempty"`
	GraphURL           string   `json:"graphUrl,omitempty"`
	Lat                float64  `json:"lat"`
	Lon                float64  `json:"lon"`
	WindDirection      string   `json:"winddirection,omitempty"`

	WindAzimuth        *float64 `json:"windazimuth,omitempty"`
	WindSpeed          *float64 `json:"windspeed,omitempty"`
	WindSpeedBft       *float64 `json:"windspeedBft,omitempty"`
	WindGusts          *float64 `json:"windgusts,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
	GroundTemperature  *float64 `json:"groundtemperature,omitempty"`
	FeelTemperature    *float64 `json:"feeltemperature,omitempty"`
	Humidity           *float64 `json:"humidity,omitempty"`
	AirPressure        *float64 `json:"airpressure,omitempty"`
	Visibility         *float64 `json:"visibility,omitempty"`
	Precipitation      *float64 `json:"precipitation,omitempty"`
	SunPower           *float64 `json:"sunpower,omitempty"`
	RainFallLastHour   *float64 `json:"rainFallLastHour,omitempty"`
	RainFallLast24Hour *float64 `json:"rainFallLast24Hour,omitempty"`
}

// Position returns the station's map position.
func (s Station) Position() Position {
	return Position{s.Lat, s.Lon}
}

// Forecast is one day of the five-day forecast.
type Forecast struct {
	Day                FeedTime `json:"day"`
	MinTemperature     string   `json:"mintemperature,omitempty"`
	MaxTemperature     string   `json:"maxtemperature,omitempty"`
	MinTemperatureMax  float64  `json:"mintemperatureMax"`
	MinTemperatureMin  float64  `json:"mintemperatureMin"`
	MaxTemperatureMax  float64  `json:"maxtemperatureMax"`
	MaxTemperatureMin  float64  `json:"maxtemperatureMin"`
	RainChance         float64  `json:"rainChance"`
	SunChance          float64  `json:"sunChance"`
	WindDirection      string   `json:"windDirection,omitempty"`
	Wind               float64  `json:"wind"`
	MMRainMin          float64  `json:"mmRainMin"`
	MMRainMax          float64  `json:"mmRainMax"`
	WeatherDescription string   `json:"weatherdescription,omitempty"`
	IconURL            string   `json:"iconurl,omitempty"`
	FullIconURL        string   `json:"fullIconUrl,omitempty"`
}

// WeatherReport is the editorial text published alongside the forecast.
type WeatherReport struct {
	Published FeedTime `json:"published"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Text      string   `json:"text"`
	Author    string   `json:"author"`
}

// Report is the decoded feed payload.
type Report struct {
	Actual struct {
		Sunrise  string    `json:"sunrise"`
		Sunset   string    `json:"sunset"`
		Stations []Station `json:"stationmeasurements"`
	} `json:"actual"`
	Forecast struct {
		Report  WeatherReport `json:"weatherreport"`
		FiveDay []Forecast    `json:"fivedayforecast"`
	} `json:"forecast"`
}

// Snapshot is the wholesale-replacing result of one successful poll.
type Snapshot struct {
	FetchedAt time.Time  `json:"fetchedAt"` // always UTC
	Stations  []Station  `json:"stations"`
	Forecast  []Forecast `json:"forecast"`
}

// FindStation looks a station up by id.
func FindStation(stations []Station, id int) (Station, bool) {
	for _, s := range stations {
		if s.StationID == id {
			return s, true
		}
	}
	return Station{}, false
}

// Float returns a pointer to v; handy for building stations in code.
func Float(v float64) *float64 {
	return &v
}
