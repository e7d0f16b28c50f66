package stormsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"storm-sync/internal/models"
	"storm-sync/shared/ai"
	"storm-sync/shared/config"
	"storm-sync/shared/email"
	"storm-sync/shared/logging"
	"storm-sync/shared/scheduler"
	"storm-sync/shared/storage"
)

// PollMetrics represents what one poll iteration managed to update
type PollMetrics struct {
	BatchSize        int    `json:"batch_size"`
	ReadingSource    string `json:"reading_source"`
	ReadingOK        bool   `json:"reading_ok"`
	PredictionOK     bool   `json:"prediction_ok"`
	PredictionCached bool   `json:"prediction_cached"`
	AlertSent        bool   `json:"alert_sent"`
}

// GetSummary implements the scheduler.Metrics interface
func (m PollMetrics) GetSummary() string {
	reading := "reading unavailable"
	if m.ReadingOK {
		reading = "reading from " + m.ReadingSource
	}

	prediction := "prediction failed"
	if m.PredictionCached {
		prediction = "cached prediction"
	} else if m.PredictionOK {
		prediction = "new prediction"
	}

	summary := fmt.Sprintf("%s, %s, %d readings in recent batch", reading, prediction, m.BatchSize)
	if m.AlertSent {
		summary += ", rain alert sent"
	}
	return summary
}

// RainAlerter notifies someone that rain has started
type RainAlerter interface {
	SendRainAlert(alert *models.RainAlert) error
}

// StormSyncAgent implements the scheduler.Agent interface. It owns the
// dashboard session state and refreshes it once per poll.
type StormSyncAgent struct {
	config     *config.Config
	store      storage.Store
	forecast   ForecastFetcher
	generator  Generator
	alerter    RainAlerter
	normalizer *Normalizer

	source    *WeatherSource
	recent    *RecentCache
	predictor *Predictor

	now     func() time.Time
	log     *zap.SugaredLogger
	running atomic.Bool

	mu         sync.RWMutex
	conditions models.Conditions
	// rain state of the last successful reading; nil before the first one
	lastRaining *bool
}

func NewStormSyncAgent(cfg *config.Config) *StormSyncAgent {
	return &StormSyncAgent{
		config: cfg,
		now:    time.Now,
		log:    logging.Named("storm-sync"),
		conditions: models.Conditions{
			Temperature: Loading,
			Pressure:    Loading,
			Raining:     Loading,
			Outlook:     Loading,
			Prediction:  Loading,
		},
	}
}

func (s *StormSyncAgent) Name() string {
	return "Storm-Sync Weather Agent"
}

func (s *StormSyncAgent) Initialize() error {
	s.log.Infof("Initializing %s...", s.Name())

	loc := s.config.Location()

	if s.normalizer == nil {
		s.normalizer = NewNormalizer(loc, s.config.ForecastAPI.FallbackPressureMb)
	}

	if s.store == nil {
		store, err := storage.Open(context.Background(), &s.config.Store)
		if err != nil {
			return fmt.Errorf("failed to open weather store: %w", err)
		}
		s.store = store
		s.log.Infof("Weather store initialized (%s)", s.config.Store.Backend)
	}

	if s.forecast == nil {
		s.forecast = NewForecastClient(&s.config.ForecastAPI)
		s.log.Info("Forecast API client initialized")
	}

	if s.generator == nil {
		forecaster, err := ai.NewForecaster(s.config)
		if err != nil {
			return fmt.Errorf("failed to create AI forecaster: %w", err)
		}
		s.generator = forecaster
		s.log.Info("AI forecaster initialized")
	}

	if s.alerter == nil && s.config.Email.Enabled {
		s.alerter = email.NewSender(&s.config.Email)
		s.log.Info("Rain alert email sender initialized")
	}

	s.source = NewWeatherSource(s.store, s.forecast, s.normalizer)
	s.source.now = s.now

	s.recent = NewRecentCache(s.store, s.normalizer, s.config.Poll.HistoryWindow)
	s.recent.now = s.now

	s.predictor = NewPredictor(s.store, s.generator, loc, s.config.Poll.PredictionTTL, s.config.Poll.SampleSize)
	s.predictor.now = s.now

	s.log.Infof("Configured for %s (%s), polling every %s",
		s.config.LocationName, s.config.Timezone, s.config.Poll.Interval)

	return nil
}

// Close releases the weather store
func (s *StormSyncAgent) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Conditions returns a snapshot of the dashboard state
func (s *StormSyncAgent) Conditions() models.Conditions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conditions
}

// RunOnce performs one poll: refresh the recent batch if stale, fetch the
// current reading, then get or generate the hour's prediction. Each field
// degrades on its own; the run only fails when nothing could be updated.
func (s *StormSyncAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("Previous poll still running, skipping this one")
		return ErrIterationInProgress
	}
	defer s.running.Store(false)

	startTime := time.Now()
	metrics := PollMetrics{}

	partial := func(err error) {
		s.log.Warnf("Poll degraded: %v", err)
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(err, time.Since(startTime))
		}
	}

	batch, err := s.recent.Get(ctx)
	if err != nil {
		partial(fmt.Errorf("failed to refresh recent readings: %w", err))
	}
	metrics.BatchSize = len(batch)

	startedRaining := false
	reading, readingErr := s.source.FetchCurrent(ctx)
	if readingErr != nil {
		partial(fmt.Errorf("failed to fetch current reading: %w", readingErr))
		s.setReadingUnavailable()
	} else {
		metrics.ReadingOK = true
		metrics.ReadingSource = reading.Source
		startedRaining = s.setReading(reading)
	}

	prediction, cached, predErr := s.predictor.resolve(ctx, batch)
	if predErr != nil {
		partial(fmt.Errorf("failed to get prediction: %w", predErr))
	} else {
		metrics.PredictionOK = true
		metrics.PredictionCached = cached
	}
	s.setPrediction(prediction, predErr == nil)

	// Sent last so the alert carries this poll's prediction
	if startedRaining && s.alerter != nil {
		if err := s.sendRainAlert(reading); err != nil {
			partial(fmt.Errorf("failed to send rain alert: %w", err))
		} else {
			metrics.AlertSent = true
		}
	}

	if readingErr != nil && predErr != nil {
		return fmt.Errorf("no conditions could be updated: %w", errors.Join(readingErr, predErr))
	}

	duration := time.Since(startTime)
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, duration)
	}

	s.log.Infof("Poll complete: %s", metrics.GetSummary())
	return nil
}

// setReading publishes a reading and reports whether it starts a rain spell
func (s *StormSyncAgent) setReading(r models.Reading) bool {
	now := s.now()
	// Day/night follows the reading's own hour, which lags now when the sensor is stale
	isNight, known := DayNight(s.normalizer.LocalHour(r.ObservedAt), r.IsRaining)

	c := models.Conditions{
		Reading:     &r,
		Temperature: fmt.Sprintf("%.1f°F", r.TemperatureF),
		Pressure:    fmt.Sprintf("%.2f mb", r.PressureMb),
		Raining:     yesNo(r.IsRaining),
		// Forecast-sourced pressure is a placeholder, so it gets no outlook
		Outlook:   PressureOutlook(r.PressureMb, r.Source == models.SourceSensor),
		UpdatedAt: now.UTC(),
	}
	if known {
		c.IsNight = &isNight
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c.Prediction = s.conditions.Prediction
	c.PredictionAt = s.conditions.PredictionAt
	s.conditions = c

	startedRaining := s.lastRaining != nil && !*s.lastRaining && r.IsRaining
	raining := r.IsRaining
	s.lastRaining = &raining
	return startedRaining
}

func (s *StormSyncAgent) setReadingUnavailable() {
	now := s.now()
	isNight, _ := DayNight(s.normalizer.LocalHour(now), false)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conditions.Reading = nil
	s.conditions.Temperature = NotAvailable
	s.conditions.Pressure = NotAvailable
	s.conditions.Raining = NotAvailable
	s.conditions.Outlook = OutlookUnavailable
	s.conditions.IsNight = &isNight
	s.conditions.UpdatedAt = now.UTC()
}

func (s *StormSyncAgent) setPrediction(p models.Prediction, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conditions.Prediction = p.Text
	if ok {
		s.conditions.PredictionAt = p.GeneratedAt
	}
}

func (s *StormSyncAgent) sendRainAlert(r models.Reading) error {
	alert := &models.RainAlert{
		LocationName: s.config.LocationName,
		Reading:      r,
		Prediction:   s.Conditions().Prediction,
		Date:         s.now().In(s.normalizer.Location()),
	}
	s.log.Infof("Rain started, sending alert for %s", alert.LocationName)
	return s.alerter.SendRainAlert(alert)
}
