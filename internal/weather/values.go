package weather

import (
	"fmt"
	"strconv"
)

// Units shown next to resolved values.
const (
	UnitCelsius     = "°C"
	UnitKmh         = "km/h"
	UnitHectopascal = "hPa"
	UnitPercent     = "%"
	UnitMillimeter  = "mm"
)

// Thresholds are strict: a value must exceed them.
const (
	TemperatureHot  = 20.0
	TemperatureMild = 10.0
	WindStrong      = 10.0
	PressureHigh    = 1020.0
)

// Marker colors per classification.
const (
	ColorTemperatureHot  = "#ef4444"
	ColorTemperatureMild = "#facc15"
	ColorTemperatureCold = "#3b82f6"
	ColorTemperatureNone = "#9ca3af"

	ColorWindStrong = "#a855f7"
	ColorWindLight  = "#22d3ee"
	ColorWindNone   = "#9ca3af"

	ColorPressureHigh = "#3b82f6"
	ColorPressureLow  = "#f97316"
	ColorPressureNone = "#9ca3af"
)

// DefaultColor is used for a visualization type ColorFor does not know.
// It is the temperature "no data" color.
const DefaultColor = ColorTemperatureNone

// MissingValue is the placeholder rendered for an absent measurement.
const MissingValue = "--"

var unitByType = map[VisualizationType]string{
	VisualizationTemperature: UnitCelsius,
	VisualizationWind:        UnitKmh,
	VisualizationPressure:    UnitHectopascal,
}

// ValueFor returns the measurement that drives the given visualization type,
// or nil when the type is unknown or the station lacks the measurement.
func ValueFor(t VisualizationType, s Station) *float64 {
	switch t {
	case VisualizationTemperature:
		return s.Temperature
	case VisualizationWind:
		return s.WindSpeed
	case VisualizationPressure:
		return s.AirPressure
	default:
		return nil
	}
}

// UnitFor returns the display unit of a visualization type.
func UnitFor(t VisualizationType) (string, bool) {
	u, ok := unitByType[t]
	return u, ok
}

// ValueWithUnitFor formats the resolved value with the type's unit, e.g. "18.5 °C".
// A missing measurement renders as "-- °C". The bool is false when the type
// has no unit mapping.
func ValueWithUnitFor(t VisualizationType, s Station) (string, bool) {
	unit, ok := unitByType[t]
	if !ok {
		return "", false
	}
	return FormatValue(ValueFor(t, s)) + " " + unit, true
}

// FormatValue renders a measurement with the shortest exact representation,
// or MissingValue when it is nil.
func FormatValue(v *float64) string {
	if v == nil {
		return MissingValue
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ColorFor classifies a value against the thresholds of its visualization type.
// Only a nil value is "no data": zero and negative values are classified.
func ColorFor(t VisualizationType, value *float64) string {
	switch t {
	case VisualizationTemperature:
		return temperatureColor(value)
	case VisualizationWind:
		return windColor(value)
	case VisualizationPressure:
		return pressureColor(value)
	default:
		return DefaultColor
	}
}

func temperatureColor(v *float64) string {
	switch {
	case v == nil:
		return ColorTemperatureNone
	case *v > TemperatureHot:
		return ColorTemperatureHot
	case *v > TemperatureMild:
		return ColorTemperatureMild
	default:
		return ColorTemperatureCold
	}
}

func windColor(v *float64) string {
	switch {
	case v == nil:
		return ColorWindNone
	case *v > WindStrong:
		return ColorWindStrong
	default:
		return ColorWindLight
	}
}

// A pressure of 0 is an invalid reading but still classifies as low.
func pressureColor(v *float64) string {
	switch {
	case v == nil:
		return ColorPressureNone
	case *v > PressureHigh:
		return ColorPressureHigh
	default:
		return ColorPressureLow
	}
}

// Label returns the human-readable name of a visualization type.
func (t VisualizationType) Label() string {
	switch t {
	case VisualizationTemperature:
		return "Temperature"
	case VisualizationWind:
		return "Wind"
	case VisualizationPressure:
		return "Pressure"
	default:
		return fmt.Sprintf("Unknown(%s)", string(t))
	}
}
