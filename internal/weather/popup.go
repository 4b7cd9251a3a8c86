package weather

import (
	"fmt"
	"html"
	"strings"
)

// Detail is one labelled measurement line of a station popup.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

func (d Detail) String() string {
	return fmt.Sprintf("%s: %s %s", d.Label, d.Value, d.Unit)
}

// StationDetails lists the measurements shown in a station popup.
// Missing measurements render as "--".
func StationDetails(s Station) []Detail {
	return []Detail{
		{Label: "Temperature", Value: FormatValue(s.Temperature), Unit: UnitCelsius},
		{Label: "Humidity", Value: FormatValue(s.Humidity), Unit: UnitPercent},
		{Label: "Wind Speed", Value: FormatValue(s.WindSpeed), Unit: UnitKmh},
		{Label: "Rainfall (1h)", Value: FormatValue(s.RainFallLastHour), Unit: UnitMillimeter},
		{Label: "Rainfall (24h)", Value: FormatValue(s.RainFallLast24Hour), Unit: UnitMillimeter},
	}
}

// PopupHTML renders the popup body bound to a station marker.
func PopupHTML(s Station) string {
	var b strings.Builder

	b.WriteString(`<div class="flex flex-col gap-1">`)
	fmt.Fprintf(&b, `<span class="font-bold">%s</span>`, html.EscapeString(s.Name))
	if s.Region != "" {
		fmt.Fprintf(&b, `<span class="text-xs text-gray-400">%s</span>`, html.EscapeString(s.Region))
	}
	for _, d := range StationDetails(s) {
		fmt.Fprintf(&b, `<span>%s: <strong>%s %s</strong></span>`, d.Label, d.Value, d.Unit)
	}
	b.WriteString(`</div>`)

	return b.String()
}

// MarkerIconHTML renders the marker badge: the station's weather icon, a color
// swatch and the formatted value label.
func MarkerIconHTML(iconURL, color, label string) string {
	return fmt.Sprintf(
		`<div class="flex items-center bg-gray-900/80 rounded-full px-1" style="width: 50px !important">`+
			`<img src="%s" class="w-4 h-4" alt="">`+
			`<span class="inline-block w-2 h-2 rounded-full" style="background-color: %s"></span>`+
			`<p class="text-center font-bold text-xs ml-1">%s</p>`+
			`</div>`,
		html.EscapeString(iconURL), color, html.EscapeString(label),
	)
}
