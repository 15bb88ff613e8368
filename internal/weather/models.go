package weather

import (
	"github.com/i474232898/weather-quota/internal/quota"
)

// ForecastPoint is a single hourly reading of a forecast.
type ForecastPoint struct {
	// Time is the provider's local "YYYY-MM-DD HH:MM" label.
	Time         string  `json:"time"`
	TemperatureC float64 `json:"temperatureC"`
	// Place is the query string as entered, not the resolved location name.
	Place string `json:"place"`
}

// ForecastSeries covers one calendar day at hourly granularity for one place.
type ForecastSeries []ForecastPoint

// LocationInfo identifies the place as resolved by the provider.
type LocationInfo struct {
	Name    string `json:"name"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// Forecast is what a Fetcher returns for a single place.
type Forecast struct {
	Location LocationInfo
	Series   ForecastSeries
}

// Extremes holds the max and min temperature of a series with their time labels.
type Extremes struct {
	Max     float64 `json:"max"`
	MaxTime string  `json:"maxTime"`
	Min     float64 `json:"min"`
	MinTime string  `json:"minTime"`
}

// QueryResult is handed to the presentation layer. It is always well formed;
// an empty Series means the query produced no data.
type QueryResult struct {
	Series   ForecastSeries `json:"series"`
	Location *LocationInfo  `json:"location"`
	Advisory quota.Advisory `json:"advisory"`
	Extremes *Extremes      `json:"extremes"`

	// Outcome tags why the result looks the way it does. It is kept out of
	// the serialized shape.
	Outcome Outcome `json:"-"`
}

// Empty reports whether the result carries no forecast data.
func (r QueryResult) Empty() bool {
	return len(r.Series) == 0
}

func emptyResult(advisory quota.Advisory, outcome Outcome) QueryResult {
	return QueryResult{
		Series:   ForecastSeries{},
		Advisory: advisory,
		Outcome:  outcome,
	}
}
