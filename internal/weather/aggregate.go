package weather

// ComputeExtremes returns the max and min temperature of series with the time
// labels they occur at. Ties resolve to the first occurrence. It returns nil
// for an empty series.
func ComputeExtremes(series ForecastSeries) *Extremes {
	if len(series) == 0 {
		return nil
	}

	ext := &Extremes{
		Max:     series[0].TemperatureC,
		MaxTime: series[0].Time,
		Min:     series[0].TemperatureC,
		MinTime: series[0].Time,
	}

	for _, p := range series[1:] {
		if p.TemperatureC > ext.Max {
			ext.Max = p.TemperatureC
			ext.MaxTime = p.Time
		}
		if p.TemperatureC < ext.Min {
			ext.Min = p.TemperatureC
			ext.MinTime = p.Time
		}
	}

	return ext
}
