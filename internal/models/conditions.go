package models

import "time"

// Conditions is the dashboard state maintained by the poll loop. Each
// display field degrades to its own sentinel independently of the others.
type Conditions struct {
	Reading      *Reading  `json:"reading,omitempty"`
	Temperature  string    `json:"temperature"`
	Pressure     string    `json:"pressure"`
	Raining      string    `json:"raining"`
	IsNight      *bool     `json:"is_night,omitempty"` // unset while raining
	Outlook      string    `json:"outlook"`
	Prediction   string    `json:"prediction"`
	PredictionAt time.Time `json:"prediction_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// RainAlert is the payload for the dry-to-rain notification email
type RainAlert struct {
	LocationName string
	Reading      Reading
	Prediction   string
	Date         time.Time
}
