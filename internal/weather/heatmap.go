package weather

import (
	"encoding/json"
	"math"
)

// heatGamma below 1 lifts mid-range intensities for contrast.
const heatGamma = 0.7

// HeatmapSample is a raw station value at a position.
type HeatmapSample struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Value float64 `json:"value"`
}

// HeatPoint is a heat layer input; Intensity is in [0,1].
type HeatPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Intensity float64 `json:"intensity"`
}

// MarshalJSON renders the point as the [lat, lon, intensity] triple heat layers consume.
func (p HeatPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Lat, p.Lon, p.Intensity})
}

// CollectSamples resolves every station's value for the visualization type
// and keeps the truthy ones. A station reporting exactly 0 is dropped along
// with missing and NaN values, so a calm station never shows on a wind heatmap.
func CollectSamples(stations []Station, t VisualizationType) []HeatmapSample {
	samples := make([]HeatmapSample, 0, len(stations))
	for _, s := range stations {
		v := ValueFor(t, s)
		if v == nil || *v == 0 || math.IsNaN(*v) {
			continue
		}
		samples = append(samples, HeatmapSample{Lat: s.Lat, Lon: s.Lon, Value: *v})
	}
	return samples
}

// Normalize maps sample values onto [0,1] against the set's own min and max,
// then applies gamma correction. Output is index-aligned with the input.
// When every value is equal all points get intensity 0.
func Normalize(samples []HeatmapSample) []HeatPoint {
	if len(samples) == 0 {
		return []HeatPoint{}
	}

	lo, hi := samples[0].Value, samples[0].Value
	for _, s := range samples[1:] {
		lo = math.Min(lo, s.Value)
		hi = math.Max(hi, s.Value)
	}

	denom := hi - lo
	if denom == 0 {
		denom = 1
	}

	points := make([]HeatPoint, len(samples))
	for i, s := range samples {
		points[i] = HeatPoint{
			Lat:       s.Lat,
			Lon:       s.Lon,
			Intensity: clamp01(math.Pow((s.Value-lo)/denom, heatGamma)),
		}
	}
	return points
}

// HeatPoints is CollectSamples followed by Normalize.
func HeatPoints(stations []Station, t VisualizationType) []HeatPoint {
	return Normalize(CollectSamples(stations, t))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
