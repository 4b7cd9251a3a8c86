package weather

import "time"

// Range describes the present values of one visualization type across a snapshot.
type Range struct {
	Unit  string  `json:"unit"`
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
	// Color classifications of Min and Max, for a legend.
	MinColor string `json:"minColor"`
	MaxColor string `json:"maxColor"`
}

// Summary aggregates a station snapshot per visualization type.
type Summary struct {
	Timestamp time.Time                   `json:"timestamp"` // newest station reading, UTC
	Stations  int                         `json:"stations"`
	Ranges    map[VisualizationType]Range `json:"ranges"`
}

// SummarizeSnapshot combines all station readings into per-type ranges.
// Missing values are skipped; a type with no values has a zero Range.
func SummarizeSnapshot(stations []Station) Summary {
	summary := Summary{
		Stations: len(stations),
		Ranges:   make(map[VisualizationType]Range, len(VisualizationTypes())),
	}

	for _, t := range VisualizationTypes() {
		values := make([]float64, 0, len(stations))
		for _, s := range stations {
			if v := ValueFor(t, s); v != nil {
				values = append(values, *v)
			}
		}
		summary.Ranges[t] = rangeOf(t, values)
	}

	for _, s := range stations {
		if s.Timestamp.After(summary.Timestamp) {
			summary.Timestamp = s.Timestamp.UTC()
		}
	}

	return summary
}

// HeatRange describes the values a heat layer of type t is normalised over:
// the same samples CollectSamples keeps, so zero readings are excluded.
func HeatRange(stations []Station, t VisualizationType) Range {
	samples := CollectSamples(stations, t)
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	return rangeOf(t, values)
}

func rangeOf(t VisualizationType, values []float64) Range {
	var r Range
	r.Unit, _ = UnitFor(t)
	if len(values) == 0 {
		return r
	}

	r.Min, r.Max = values[0], values[0]
	var sum float64
	for _, v := range values {
		r.Min = min(r.Min, v)
		r.Max = max(r.Max, v)
		sum += v
	}
	r.Count = len(values)
	r.Mean = sum / float64(len(values))
	r.MinColor = ColorFor(t, &r.Min)
	r.MaxColor = ColorFor(t, &r.Max)
	return r
}
