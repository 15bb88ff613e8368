package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-quota/internal/weather"
)

// DefaultWeatherAPIBaseURL is the WeatherAPI.com forecast endpoint.
const DefaultWeatherAPIBaseURL = "https://api.weatherapi.com/v1/forecast.json"

var validate = validator.New()

// WeatherAPIProvider implements weather.Fetcher for WeatherAPI.com.
type WeatherAPIProvider struct {
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewWeatherAPIProvider creates a provider. An empty baseURL selects the
// public endpoint. The API key is not checked here; a missing key surfaces as
// the provider's own authentication error.
func NewWeatherAPIProvider(client *http.Client, apiKey, baseURL string) *WeatherAPIProvider {
	if baseURL == "" {
		baseURL = DefaultWeatherAPIBaseURL
	}

	return &WeatherAPIProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
		},
		circuit: newCircuitBreaker("weatherapi"),
	}
}

// forecastPayload is the subset of the forecast.json response we consume.
// Pointers distinguish absent fields from zero values.
type forecastPayload struct {
	Location *struct {
		Name    *string `json:"name" validate:"required"`
		Region  *string `json:"region" validate:"required"`
		Country *string `json:"country" validate:"required"`
	} `json:"location" validate:"required"`
	Forecast *struct {
		ForecastDay []struct {
			Hour []struct {
				Time  *string  `json:"time" validate:"required"`
				TempC *float64 `json:"temp_c" validate:"required"`
			} `json:"hour" validate:"required,min=1,dive"`
		} `json:"forecastday" validate:"required,min=1,dive"`
	} `json:"forecast" validate:"required"`
}

// Fetch retrieves today's hourly forecast for place. Every point is labelled
// with place exactly as given, not with the name the provider resolved.
func (p *WeatherAPIProvider) Fetch(ctx context.Context, place string) (weather.Forecast, error) {
	if place == "" {
		return weather.Forecast{}, weather.ErrInvalidInput
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", place)
		values.Set("days", "1")
		values.Set("aqi", "no")
		values.Set("alerts", "no")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Forecast{}, err
	}
	defer resp.Body.Close()

	var payload forecastPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Forecast{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}
	if err := validate.Struct(payload); err != nil {
		return weather.Forecast{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}

	hours := payload.Forecast.ForecastDay[0].Hour
	series := make(weather.ForecastSeries, 0, len(hours))
	for _, h := range hours {
		series = append(series, weather.ForecastPoint{
			Time:         *h.Time,
			TemperatureC: *h.TempC,
			Place:        place,
		})
	}

	return weather.Forecast{
		Location: weather.LocationInfo{
			Name:    *payload.Location.Name,
			Region:  *payload.Location.Region,
			Country: *payload.Location.Country,
		},
		Series: series,
	}, nil
}
