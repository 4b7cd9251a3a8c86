package weather

// DayLabels returns three-letter weekday names ("Mon", "Tue", ...) for the
// forecast days. A day without a date is labelled MissingValue.
func DayLabels(forecast []Forecast) []string {
	labels := make([]string, len(forecast))
	for i, f := range forecast {
		if f.Day.IsZero() {
			labels[i] = MissingValue
			continue
		}
		labels[i] = f.Day.Weekday().String()[:3]
	}
	return labels
}

// MaxTemperatures returns the upper bound of each day's maximum temperature.
func MaxTemperatures(forecast []Forecast) []float64 {
	return series(forecast, func(f Forecast) float64 { return f.MaxTemperatureMax })
}

// MinTemperatures returns the lower bound of each day's minimum temperature.
func MinTemperatures(forecast []Forecast) []float64 {
	return series(forecast, func(f Forecast) float64 { return f.MinTemperatureMin })
}

// RainChances returns each day's chance of rain in percent.
func RainChances(forecast []Forecast) []float64 {
	return series(forecast, func(f Forecast) float64 { return f.RainChance })
}

func series(forecast []Forecast, pick func(Forecast) float64) []float64 {
	out := make([]float64, len(forecast))
	for i, f := range forecast {
		out[i] = pick(f)
	}
	return out
}
