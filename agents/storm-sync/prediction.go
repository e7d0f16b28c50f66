package stormsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"storm-sync/internal/models"
	"storm-sync/shared/logging"
	"storm-sync/shared/storage"
)

const (
	// At most this many readings are taken from any one hour
	samplesPerHour = 2
	// How many readings from a batch are sent to the model by default
	defaultSampleSize = 6
)

// PredictionStore persists hour-scoped predictions
type PredictionStore interface {
	LatestPrediction(ctx context.Context) (*models.Prediction, error)
	WritePrediction(ctx context.Context, key string, p models.Prediction) error
}

// Generator produces forecast text from a prompt
type Generator interface {
	Forecast(ctx context.Context, prompt string) (string, error)
}

// Predictor returns the stored prediction while it is fresh and otherwise
// generates, persists and returns a new one.
type Predictor struct {
	store      PredictionStore
	generator  Generator
	loc        *time.Location
	ttl        time.Duration
	sampleSize int
	now        func() time.Time
	log        *zap.SugaredLogger
}

func NewPredictor(store PredictionStore, generator Generator, loc *time.Location, ttl time.Duration, sampleSize int) *Predictor {
	if loc == nil {
		loc = time.UTC
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if sampleSize <= 0 {
		sampleSize = defaultSampleSize
	}
	return &Predictor{
		store:      store,
		generator:  generator,
		loc:        loc,
		ttl:        ttl,
		sampleSize: sampleSize,
		now:        time.Now,
		log:        logging.Named("predictor"),
	}
}

// GetOrGenerate returns the current hour's prediction. On any generation or
// persistence failure it returns a sentinel prediction, which is never stored,
// together with an error wrapping ErrGenerationFailure.
func (p *Predictor) GetOrGenerate(ctx context.Context, batch models.RecentBatch) (models.Prediction, error) {
	pred, _, err := p.resolve(ctx, batch)
	return pred, err
}

// resolve is GetOrGenerate that also reports whether the stored prediction was reused
func (p *Predictor) resolve(ctx context.Context, batch models.RecentBatch) (models.Prediction, bool, error) {
	now := p.now()

	cached, err := p.store.LatestPrediction(ctx)
	if err != nil {
		// Treat an unreadable cache as a miss
		p.log.Warnf("Failed to read latest prediction, regenerating: %v", err)
	} else if cached != nil && IsFresh(*cached, now, p.ttl) {
		return *cached, true, nil
	}

	pred, err := p.generate(ctx, batch, now)
	if err != nil {
		sentinel := models.Prediction{Text: PredictionError, GeneratedAt: now.UTC()}
		return sentinel, false, fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	return pred, false, nil
}

func (p *Predictor) generate(ctx context.Context, batch models.RecentBatch, now time.Time) (models.Prediction, error) {
	sample := SelectSample(batch, now, p.loc, p.sampleSize)
	if len(sample) == 0 {
		return models.Prediction{}, fmt.Errorf("%w: no recent readings to summarize", ErrNoData)
	}

	prompt := BuildPrompt(FormatSummary(sample, p.loc))

	text, err := p.generator.Forecast(ctx, prompt)
	if err != nil {
		return models.Prediction{}, err
	}

	pred := models.Prediction{Text: text, GeneratedAt: now.UTC()}
	if err := p.store.WritePrediction(ctx, storage.PredictionKey(pred.GeneratedAt), pred); err != nil {
		return models.Prediction{}, err
	}

	p.log.Infof("Generated new prediction from %d readings", len(sample))
	return pred, nil
}

// IsFresh reports whether pred was generated less than ttl before now
func IsFresh(pred models.Prediction, now time.Time, ttl time.Duration) bool {
	return now.Sub(pred.GeneratedAt) < ttl
}

// SelectSample picks up to size readings from a most-recent-first batch,
// taking at most two per local hour across the most recent size/2 hours.
// When that yields fewer than size readings it falls back to the size most
// recent readings overall.
func SelectSample(batch models.RecentBatch, now time.Time, loc *time.Location, size int) models.RecentBatch {
	if size <= 0 || len(batch) == 0 {
		return nil
	}
	hours := (size + samplesPerHour - 1) / samplesPerHour
	current := hourStart(now, loc)

	perHour := make(map[int]int, hours)
	sample := make(models.RecentBatch, 0, size)
	for _, r := range batch {
		if len(sample) == size {
			break
		}
		idx := int(current.Sub(hourStart(r.ObservedAt, loc)) / time.Hour)
		if idx < 0 {
			idx = 0
		}
		if idx >= hours || perHour[idx] >= samplesPerHour {
			continue
		}
		perHour[idx]++
		sample = append(sample, r)
	}

	if len(sample) < size {
		n := size
		if len(batch) < n {
			n = len(batch)
		}
		return batch[:n:n]
	}
	return sample
}

func hourStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
}

// FormatReading renders one reading for the model prompt
func FormatReading(r models.Reading, loc *time.Location) string {
	return fmt.Sprintf("[Temperature: %.1f°F, Pressure: %.1f mb, Raining: %s, Time: %s]",
		r.TemperatureF, r.PressureMb, yesNo(r.IsRaining), r.ObservedAt.In(loc).Format("15:04"))
}

// FormatSummary renders readings one per line, in the order given
func FormatSummary(readings models.RecentBatch, loc *time.Location) string {
	lines := make([]string, 0, len(readings))
	for _, r := range readings {
		lines = append(lines, FormatReading(r, loc))
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt wraps a reading summary in the forecast instruction
func BuildPrompt(summary string) string {
	return fmt.Sprintf(`You are a weather forecaster for a backyard weather station.

RECENT READINGS (most recent first):
%s

Based only on these readings, write a one-sentence weather forecast for the next few hours. Reply with the sentence and nothing else.`, summary)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
