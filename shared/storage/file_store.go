package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"storm-sync/internal/models"
)

// FileStore keeps readings and predictions in a single JSON file. It stands
// in for Firestore when running locally.
type FileStore struct {
	filePath    string
	readings    []models.RawSensorRecord
	predictions map[string]models.Prediction
	mu          sync.RWMutex
	now         func() time.Time
}

// fileData is the on-disk layout
type fileData struct {
	Readings    []models.RawSensorRecord     `json:"readings"`
	Predictions map[string]models.Prediction `json:"predictions"`
}

// NewFileStore creates a file-backed store under dataDir
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fs := &FileStore{
		filePath:    filepath.Join(dataDir, "weather.json"),
		predictions: make(map[string]models.Prediction),
		now:         time.Now,
	}

	if err := fs.load(); err != nil {
		return nil, fmt.Errorf("failed to load weather store data: %w", err)
	}

	return fs, nil
}

func (fs *FileStore) ListSince(ctx context.Context, cutoff time.Time) ([]models.RawSensorRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var out []models.RawSensorRecord
	for _, r := range fs.readings {
		if cutoff.IsZero() || !r.ObservedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (fs *FileStore) MostRecent(ctx context.Context) (*models.RawSensorRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if len(fs.readings) == 0 {
		return nil, nil
	}
	rec := fs.readings[0]
	return &rec, nil
}

// AddReading inserts a reading, stamping it with the current time when it carries none
func (fs *FileStore) AddReading(ctx context.Context, rec models.RawSensorRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if rec.ObservedAt.IsZero() {
		rec.ObservedAt = fs.now().UTC()
	}
	fs.readings = append(fs.readings, rec)
	sortNewestFirst(fs.readings)
	return fs.save()
}

func (fs *FileStore) WritePrediction(ctx context.Context, key string, p models.Prediction) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.predictions[key] = p
	return fs.save()
}

func (fs *FileStore) LatestPrediction(ctx context.Context) (*models.Prediction, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var latest *models.Prediction
	for _, p := range fs.predictions {
		if latest == nil || p.GeneratedAt.After(latest.GeneratedAt) {
			p := p
			latest = &p
		}
	}
	return latest, nil
}

// PredictionCount returns the number of stored predictions
func (fs *FileStore) PredictionCount() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.predictions)
}

func (fs *FileStore) Close() error {
	return nil
}

// load reads the store from the JSON file
func (fs *FileStore) load() error {
	file, err := os.Open(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist yet, start empty
			return nil
		}
		return fmt.Errorf("failed to open store file: %w", err)
	}
	defer file.Close()

	var data fileData
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode store data: %w", err)
	}

	fs.readings = data.Readings
	sortNewestFirst(fs.readings)
	for k, p := range data.Predictions {
		fs.predictions[k] = p
	}

	return nil
}

// save writes the store to the JSON file. Callers hold the write lock.
func (fs *FileStore) save() error {
	file, err := os.Create(fs.filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(fileData{
		Readings:    fs.readings,
		Predictions: fs.predictions,
	})
}

func sortNewestFirst(records []models.RawSensorRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ObservedAt.After(records[j].ObservedAt)
	})
}
