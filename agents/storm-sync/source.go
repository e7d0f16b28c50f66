package stormsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storm-sync/internal/models"
	"storm-sync/shared/logging"
)

// SensorReader is the primary store's current-reading query
type SensorReader interface {
	MostRecent(ctx context.Context) (*models.RawSensorRecord, error)
}

// ForecastFetcher is the secondary public forecast API
type ForecastFetcher interface {
	GetCurrentForecast(ctx context.Context) (*models.RawForecastRecord, error)
}

// WeatherSource puts the sensor store and the public forecast behind one
// current-reading call, preferring the sensor.
type WeatherSource struct {
	primary    SensorReader
	secondary  ForecastFetcher
	normalizer *Normalizer
	now        func() time.Time
	log        *zap.SugaredLogger
}

func NewWeatherSource(primary SensorReader, secondary ForecastFetcher, normalizer *Normalizer) *WeatherSource {
	return &WeatherSource{
		primary:    primary,
		secondary:  secondary,
		normalizer: normalizer,
		now:        time.Now,
		log:        logging.Named("source"),
	}
}

// FetchCurrent tries the primary store once, then the secondary API once.
// When both fail the returned error wraps ErrSourceUnavailable.
func (w *WeatherSource) FetchCurrent(ctx context.Context) (models.Reading, error) {
	reading, primaryErr := w.fromPrimary(ctx)
	if primaryErr == nil {
		return reading, nil
	}
	w.log.Infof("Primary source failed, falling back to forecast API: %v", primaryErr)

	reading, secondaryErr := w.fromSecondary(ctx)
	if secondaryErr == nil {
		return reading, nil
	}

	return models.Reading{}, fmt.Errorf("%w: %w", ErrSourceUnavailable,
		errors.Join(
			fmt.Errorf("primary: %w", primaryErr),
			fmt.Errorf("secondary: %w", secondaryErr),
		))
}

func (w *WeatherSource) fromPrimary(ctx context.Context) (models.Reading, error) {
	if w.primary == nil {
		return models.Reading{}, fmt.Errorf("%w: no primary store configured", ErrSourceUnavailable)
	}
	rec, err := w.primary.MostRecent(ctx)
	if err != nil {
		return models.Reading{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if rec == nil {
		return models.Reading{}, fmt.Errorf("%w: sensor store is empty", ErrNoData)
	}
	return w.normalizer.FromSensor(*rec), nil
}

func (w *WeatherSource) fromSecondary(ctx context.Context) (models.Reading, error) {
	if w.secondary == nil {
		return models.Reading{}, fmt.Errorf("%w: no forecast API configured", ErrSourceUnavailable)
	}
	rec, err := w.secondary.GetCurrentForecast(ctx)
	if err != nil {
		return models.Reading{}, err
	}
	return w.normalizer.FromForecast(*rec, w.now())
}
