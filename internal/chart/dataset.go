// Package chart builds the forecast line chart and keeps it in sync with the
// latest forecast without losing legend state.
package chart

// Gradient is the area fill below a line, from the top of the chart area to
// its bottom. Middle is used when the chart area is not laid out yet.
type Gradient struct {
	Start  string `json:"start"`
	Middle string `json:"middle"`
	End    string `json:"end"`
}

// Color is a dataset's line color and area fill.
type Color struct {
	Main         string   `json:"main"`
	AreaGradient Gradient `json:"areaGradient"`
}

// ChartArea is the laid-out plotting area in canvas pixels.
type ChartArea struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// ColorStop is one stop of a linear gradient.
type ColorStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// LinearGradient runs from (X0, Y0) to (X1, Y1).
type LinearGradient struct {
	X0    float64     `json:"x0"`
	Y0    float64     `json:"y0"`
	X1    float64     `json:"x1"`
	Y1    float64     `json:"y1"`
	Stops []ColorStop `json:"stops"`
}

// FillStyle is either a solid color or a linear gradient.
type FillStyle struct {
	Solid  string          `json:"solid,omitempty"`
	Linear *LinearGradient `json:"linear,omitempty"`
}

// GradientFill resolves an area gradient against the chart area. Without an
// area it falls back to the solid middle color.
func GradientFill(area *ChartArea, g Gradient) FillStyle {
	if area == nil {
		return FillStyle{Solid: g.Middle}
	}
	return FillStyle{Linear: &LinearGradient{
		X0: 0, Y0: area.Top,
		X1: 0, Y1: area.Bottom,
		Stops: []ColorStop{
			{Offset: 0, Color: g.Start},
			{Offset: 1, Color: g.End},
		},
	}}
}

// Line styling shared by every dataset.
const (
	LineTension      = 0.35
	LineBorderWidth  = 2
	PointRadius      = 3
	PointHoverRadius = 6
	PointBorderWidth = 1.5
	PointBorderColor = "rgba(255, 255, 255, 0.85)"
)

// Dataset is a line series as handed to the charting surface.
type Dataset struct {
	Label                string    `json:"label"`
	Data                 []float64 `json:"data"`
	YAxisID              string    `json:"yAxisID"`
	Tension              float64   `json:"tension"`
	BorderWidth          float64   `json:"borderWidth"`
	BorderColor          string    `json:"borderColor"`
	PointRadius          float64   `json:"pointRadius"`
	PointHoverRadius     float64   `json:"pointHoverRadius"`
	PointBorderWidth     float64   `json:"pointBorderWidth"`
	PointBackgroundColor string    `json:"pointBackgroundColor"`
	PointBorderColor     string    `json:"pointBorderColor"`
	Fill                 bool      `json:"fill"`
	AreaGradient         Gradient  `json:"areaGradient"`
	Hidden               bool      `json:"hidden"`
}

// LineDataset builds a styled, filled line series.
func LineDataset(label string, data []float64, yAxisID string, color Color) Dataset {
	return Dataset{
		Label:                label,
		Data:                 data,
		YAxisID:              yAxisID,
		Tension:              LineTension,
		BorderWidth:          LineBorderWidth,
		BorderColor:          color.Main,
		PointRadius:          PointRadius,
		PointHoverRadius:     PointHoverRadius,
		PointBorderWidth:     PointBorderWidth,
		PointBackgroundColor: color.Main,
		PointBorderColor:     PointBorderColor,
		Fill:                 true,
		AreaGradient:         color.AreaGradient,
	}
}

// Background is the dataset's area fill for a chart area.
func (d Dataset) Background(area *ChartArea) FillStyle {
	return GradientFill(area, d.AreaGradient)
}
