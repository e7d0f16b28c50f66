package models

import "time"

// Reading sources
const (
	SourceSensor   = "sensor"
	SourceForecast = "forecast"
)

// Reading is one normalized weather observation. Temperature is always
// Fahrenheit and pressure always millibars, whichever source produced it.
type Reading struct {
	TemperatureF float64   `json:"temperature_f"`
	PressureMb   float64   `json:"pressure_mb"`
	IsRaining    bool      `json:"is_raining"`
	ObservedAt   time.Time `json:"observed_at"` // UTC
	Source       string    `json:"source"`
}

// RawSensorRecord is a document from the primary sensor store
type RawSensorRecord struct {
	TemperatureC float64   `json:"temperature_c"`
	PressureMb   float64   `json:"pressure_mb"`
	Wetness      int       `json:"wetness"` // higher = drier
	ObservedAt   time.Time `json:"observed_at"`
}

// RawForecastRecord holds the fields we consume from the first period of
// the public hourly forecast.
type RawForecastRecord struct {
	TemperatureF     float64 `json:"temperature_f"`
	ShortForecast    string  `json:"short_forecast"`
	DetailedForecast string  `json:"detailed_forecast"`
	StartTime        string  `json:"start_time"`
}

// RecentBatch is an ordered, most-recent-first sequence of readings used
// as input to forecast generation.
type RecentBatch []Reading
