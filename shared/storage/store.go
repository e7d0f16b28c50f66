package storage

import (
	"context"
	"fmt"
	"time"

	"storm-sync/internal/models"
	"storm-sync/shared/config"
)

// Store is the external weather store contract: sensor readings written by
// the uploader and hour-scoped predictions written by the dashboard agent.
type Store interface {
	// ListSince returns readings observed at or after cutoff, newest first.
	// A zero cutoff returns all history.
	ListSince(ctx context.Context, cutoff time.Time) ([]models.RawSensorRecord, error)
	// MostRecent returns the newest reading, or nil when the store is empty.
	MostRecent(ctx context.Context) (*models.RawSensorRecord, error)
	AddReading(ctx context.Context, rec models.RawSensorRecord) error
	// WritePrediction merge-writes a prediction under key; earlier keys are kept.
	WritePrediction(ctx context.Context, key string, p models.Prediction) error
	// LatestPrediction returns the newest prediction, or nil when none exists.
	LatestPrediction(ctx context.Context) (*models.Prediction, error)
	Close() error
}

// PredictionKey renders the generation timestamp used as a prediction's document key
func PredictionKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Open builds the store selected by cfg.Backend
func Open(ctx context.Context, cfg *config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		return NewFirestoreStore(ctx, cfg)
	case config.BackendFile:
		return NewFileStore(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
