package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"storm-sync/internal/models"
	"storm-sync/shared/config"
)

const datastoreScope = "https://www.googleapis.com/auth/datastore"

// sensorDoc mirrors the documents the uploader writes to the readings collection
type sensorDoc struct {
	Temperature float64   `firestore:"Temperature"`
	Pressure    float64   `firestore:"Pressure"`
	Wetness     float64   `firestore:"Wetness Value"`
	Time        time.Time `firestore:"Time"`
}

type predictionDoc struct {
	Prediction string    `firestore:"Prediction"`
	Time       time.Time `firestore:"Time"`
}

// FirestoreStore reads and writes the weather collections in Cloud Firestore
type FirestoreStore struct {
	client      *firestore.Client
	readings    string
	predictions string
}

func NewFirestoreStore(ctx context.Context, cfg *config.StoreConfig) (*FirestoreStore, error) {
	var opts []option.ClientOption

	// Without an explicit key file the client falls back to application default credentials
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file %s: %w", cfg.CredentialsFile, err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, datastoreScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreStore{
		client:      client,
		readings:    cfg.ReadingsCollection,
		predictions: cfg.PredictionsCollection,
	}, nil
}

func (s *FirestoreStore) ListSince(ctx context.Context, cutoff time.Time) ([]models.RawSensorRecord, error) {
	q := s.client.Collection(s.readings).Query
	if !cutoff.IsZero() {
		q = q.Where("Time", ">=", cutoff)
	}

	docs, err := q.OrderBy("Time", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.readings, err)
	}

	records := make([]models.RawSensorRecord, 0, len(docs))
	for _, snap := range docs {
		var d sensorDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode reading %s: %w", snap.Ref.ID, err)
		}
		records = append(records, d.record())
	}
	return records, nil
}

func (s *FirestoreStore) MostRecent(ctx context.Context) (*models.RawSensorRecord, error) {
	docs, err := s.client.Collection(s.readings).
		OrderBy("Time", firestore.Desc).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query latest reading: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var d sensorDoc
	if err := docs[0].DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode reading %s: %w", docs[0].Ref.ID, err)
	}
	rec := d.record()
	return &rec, nil
}

func (s *FirestoreStore) AddReading(ctx context.Context, rec models.RawSensorRecord) error {
	var ts interface{} = firestore.ServerTimestamp
	if !rec.ObservedAt.IsZero() {
		ts = rec.ObservedAt
	}

	_, _, err := s.client.Collection(s.readings).Add(ctx, map[string]interface{}{
		"Temperature":   rec.TemperatureC,
		"Pressure":      rec.PressureMb,
		"Wetness Value": float64(rec.Wetness),
		"Time":          ts,
	})
	if err != nil {
		return fmt.Errorf("failed to add reading: %w", err)
	}
	return nil
}

func (s *FirestoreStore) WritePrediction(ctx context.Context, key string, p models.Prediction) error {
	_, err := s.client.Collection(s.predictions).Doc(key).Set(ctx, map[string]interface{}{
		"Prediction": p.Text,
		"Time":       p.GeneratedAt,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to write prediction %s: %w", key, err)
	}
	return nil
}

func (s *FirestoreStore) LatestPrediction(ctx context.Context) (*models.Prediction, error) {
	docs, err := s.client.Collection(s.predictions).
		OrderBy("Time", firestore.Desc).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query latest prediction: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var d predictionDoc
	if err := docs[0].DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode prediction %s: %w", docs[0].Ref.ID, err)
	}
	return &models.Prediction{Text: d.Prediction, GeneratedAt: d.Time.UTC()}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (d sensorDoc) record() models.RawSensorRecord {
	return models.RawSensorRecord{
		TemperatureC: d.Temperature,
		PressureMb:   d.Pressure,
		Wetness:      int(d.Wetness),
		ObservedAt:   d.Time.UTC(),
	}
}
