package chart

import (
	"fmt"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	LabelMaxTemp    = "Max Temp (°C)"
	LabelMinTemp    = "Min Temp (°C)"
	LabelRainChance = "Rain Chance (%)"

	AxisTemperature = "y"
	AxisPercentage  = "y2"
)

var (
	red = Color{
		Main:         "rgb(239, 68, 68)",
		AreaGradient: Gradient{Start: "rgba(239,68,68,0.30)", Middle: "rgba(239,68,68,0.15)", End: "rgba(239,68,68,0.00)"},
	}
	blue = Color{
		Main:         "rgb(59, 130, 246)",
		AreaGradient: Gradient{Start: "rgba(59,130,246,0.30)", Middle: "rgba(59,130,246,0.15)", End: "rgba(59,130,246,0.00)"},
	}
	emerald = Color{
		Main:         "rgb(16, 185, 129)",
		AreaGradient: Gradient{Start: "rgba(16,185,129,0.30)", Middle: "rgba(16,185,129,0.15)", End: "rgba(16,185,129,0.00)"},
	}
)

// Scale configures one axis.
type Scale struct {
	Position     string  `json:"position,omitempty"`
	TickColor    string  `json:"tickColor"`
	TickSuffix   string  `json:"tickSuffix,omitempty"`
	GridColor    string  `json:"gridColor,omitempty"`
	DrawGrid     bool    `json:"drawOnChartArea"`
	BeginAtZero  bool    `json:"beginAtZero"`
	SuggestedMax float64 `json:"suggestedMax,omitempty"`
}

// Options are the static chart options.
type Options struct {
	AnimationMs int              `json:"animationMs"`
	LegendColor string           `json:"legendColor"`
	Tooltip     TooltipStyle     `json:"tooltip"`
	Scales      map[string]Scale `json:"scales"`
}

type TooltipStyle struct {
	Background  string `json:"background"`
	BorderColor string `json:"borderColor"`
	TextColor   string `json:"textColor"`
}

// ForecastOptions returns the options of the five-day forecast chart: a
// temperature axis on the left and a percentage axis on the right.
func ForecastOptions() Options {
	return Options{
		AnimationMs: 1200,
		LegendColor: "#e5e7eb",
		Tooltip: TooltipStyle{
			Background:  "rgba(17, 24, 39, 0.95)",
			BorderColor: "rgba(59, 130, 246, 0.4)",
			TextColor:   "#e5e7eb",
		},
		Scales: map[string]Scale{
			"x": {TickColor: "#9ca3af", GridColor: "rgba(148, 163, 184, 0.15)", DrawGrid: true},
			AxisTemperature: {
				TickColor: "#9ca3af", TickSuffix: "°", GridColor: "rgba(148, 163, 184, 0.12)",
				DrawGrid: true, BeginAtZero: true, SuggestedMax: 30,
			},
			AxisPercentage: {
				Position: "right", TickColor: "#9ca3af", TickSuffix: "%",
				BeginAtZero: true, SuggestedMax: 100,
			},
		},
	}
}

// ForecastDatasets builds the max/min temperature and rain chance series.
func ForecastDatasets(forecast []weather.Forecast) []Dataset {
	return []Dataset{
		LineDataset(LabelMaxTemp, weather.MaxTemperatures(forecast), AxisTemperature, red),
		LineDataset(LabelMinTemp, weather.MinTemperatures(forecast), AxisTemperature, blue),
		LineDataset(LabelRainChance, weather.RainChances(forecast), AxisPercentage, emerald),
	}
}

// TooltipLabel formats a hovered point, e.g. "Max Temp (°C): 12°C".
func TooltipLabel(d Dataset, value float64) string {
	unit := "°C"
	if d.YAxisID == AxisPercentage {
		unit = "%"
	}
	return fmt.Sprintf("%s: %s%s", d.Label, weather.FormatValue(&value), unit)
}
