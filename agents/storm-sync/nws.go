package stormsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"storm-sync/internal/models"
	"storm-sync/shared/config"
	"storm-sync/shared/logging"
)

// ForecastClient reads the National Weather Service hourly gridpoint forecast
type ForecastClient struct {
	config  *config.ForecastAPIConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.SugaredLogger
}

// NWSForecastResponse holds the parts of the gridpoint forecast payload we read
type NWSForecastResponse struct {
	Properties struct {
		Periods []NWSPeriod `json:"periods"`
	} `json:"properties"`
}

type NWSPeriod struct {
	StartTime        string  `json:"startTime"`
	Temperature      float64 `json:"temperature"`
	TemperatureUnit  string  `json:"temperatureUnit"`
	ShortForecast    string  `json:"shortForecast"`
	DetailedForecast string  `json:"detailedForecast"`
}

func NewForecastClient(cfg *config.ForecastAPIConfig) *ForecastClient {
	log := logging.Named("nws")
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "nws-forecast",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &ForecastClient{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: breaker,
		log:     log,
	}
}

// GetCurrentForecast fetches the forecast and returns its first period.
// There are no retries here; the next poll tick is the retry.
func (f *ForecastClient) GetCurrentForecast(ctx context.Context) (*models.RawForecastRecord, error) {
	f.log.Debugf("Fetching forecast from: %s", f.config.URL)

	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: forecast API circuit open", ErrSourceUnavailable)
		}
		return nil, err
	}

	resp, ok := result.(*NWSForecastResponse)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type from circuit breaker", ErrFormat)
	}
	if len(resp.Properties.Periods) == 0 {
		return nil, fmt.Errorf("%w: forecast has no periods", ErrNoData)
	}

	p := resp.Properties.Periods[0]
	temp := p.Temperature
	if p.TemperatureUnit == "C" {
		temp = CelsiusToFahrenheit(temp)
	}

	return &models.RawForecastRecord{
		TemperatureF:     temp,
		ShortForecast:    p.ShortForecast,
		DetailedForecast: p.DetailedForecast,
		StartTime:        p.StartTime,
	}, nil
}

func (f *ForecastClient) fetch(ctx context.Context) (*NWSForecastResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create forecast request: %w", err)
	}
	// api.weather.gov rejects requests without a User-Agent
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch forecast: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: forecast API returned status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var apiResp NWSForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode forecast response: %v", ErrFormat, err)
	}

	return &apiResp, nil
}

// breakerState is exposed for tests
func (f *ForecastClient) breakerState() gobreaker.State {
	return f.breaker.State()
}
