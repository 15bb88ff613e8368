package weather

import (
	"context"
)

// Fetcher abstracts the forecast source (e.g. WeatherAPI.com).
type Fetcher interface {
	Fetch(ctx context.Context, place string) (Forecast, error)
}

// Ledger is the contract the access ledger must satisfy.
type Ledger interface {
	Record(id string)
	Count(id string) int64
	Total() int64
	Clients() int
}

// Recorder receives per-query measurements.
type Recorder interface {
	RecordQuery(outcome, advisory string)
	ObserveFetch(outcome string, seconds float64)
	UpdateUsage(total int64, usage float64)
}

type noopRecorder struct{}

func (noopRecorder) RecordQuery(string, string)   {}
func (noopRecorder) ObserveFetch(string, float64) {}
func (noopRecorder) UpdateUsage(int64, float64)   {}
