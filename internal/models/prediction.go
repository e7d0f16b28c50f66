package models

import "time"

// Prediction is one hour-scoped natural-language forecast sentence
type Prediction struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}
