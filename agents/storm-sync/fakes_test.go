package stormsync

import (
	"context"
	"sync"
	"time"

	"storm-sync/internal/models"
	"storm-sync/shared/config"
)

// fakeStore is an in-memory storage.Store that counts calls
type fakeStore struct {
	mu sync.Mutex

	records       []models.RawSensorRecord // newest first
	mostRecentErr error
	listErr       error
	lastCutoff    time.Time

	latest    *models.Prediction
	latestErr error
	writeErr  error
	written   map[string]models.Prediction

	listCalls       int
	mostRecentCalls int
}

func (f *fakeStore) ListSince(ctx context.Context, cutoff time.Time) ([]models.RawSensorRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastCutoff = cutoff
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.RawSensorRecord
	for _, r := range f.records {
		if cutoff.IsZero() || !r.ObservedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) MostRecent(ctx context.Context) (*models.RawSensorRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mostRecentCalls++
	if f.mostRecentErr != nil {
		return nil, f.mostRecentErr
	}
	if len(f.records) == 0 {
		return nil, nil
	}
	rec := f.records[0]
	return &rec, nil
}

func (f *fakeStore) AddReading(ctx context.Context, rec models.RawSensorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append([]models.RawSensorRecord{rec}, f.records...)
	return nil
}

func (f *fakeStore) WritePrediction(ctx context.Context, key string, p models.Prediction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.written == nil {
		f.written = make(map[string]models.Prediction)
	}
	f.written[key] = p
	f.latest = &p
	return nil
}

func (f *fakeStore) LatestPrediction(ctx context.Context) (*models.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.latest, nil
}

func (f *fakeStore) Close() error { return nil }

// fakeGenerator records prompts and returns a canned answer
type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) Forecast(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

type fakeForecast struct {
	rec   *models.RawForecastRecord
	err   error
	calls int
}

func (f *fakeForecast) GetCurrentForecast(ctx context.Context) (*models.RawForecastRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

type fakeAlerter struct {
	alerts []*models.RainAlert
	err    error
}

func (a *fakeAlerter) SendRainAlert(alert *models.RainAlert) error {
	a.alerts = append(a.alerts, alert)
	return a.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testConfig() *config.Config {
	return &config.Config{
		LocationName: "Test Station",
		Timezone:     "UTC",
		ForecastAPI: config.ForecastAPIConfig{
			FallbackPressureMb: 1021.1,
		},
		Poll: config.PollConfig{
			Interval:      time.Minute,
			PredictionTTL: time.Hour,
			SampleSize:    6,
		},
	}
}
