package stormsync

import (
	"fmt"
	"strings"
	"time"

	"storm-sync/internal/models"
)

const (
	// Wetness values strictly below this mean the sensor is wet
	wetnessRainThreshold = 500

	nightStartHour = 19
	nightEndHour   = 7
)

// Keywords in a forecast's short text that mean rain is falling
var rainKeywords = []string{"rain", "showers", "drizzle", "thunderstorm"}

// Normalizer converts provider records into Readings. It has no side effects.
type Normalizer struct {
	loc                *time.Location
	fallbackPressureMb float64
}

func NewNormalizer(loc *time.Location, fallbackPressureMb float64) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc, fallbackPressureMb: fallbackPressureMb}
}

// CelsiusToFahrenheit converts exactly, without rounding
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// IsWet reports whether a raw wetness value indicates rain
func IsWet(wetness int) bool {
	return wetness < wetnessRainThreshold
}

// FromSensor normalizes a primary-store record
func (n *Normalizer) FromSensor(rec models.RawSensorRecord) models.Reading {
	return models.Reading{
		TemperatureF: CelsiusToFahrenheit(rec.TemperatureC),
		PressureMb:   rec.PressureMb,
		IsRaining:    IsWet(rec.Wetness),
		ObservedAt:   rec.ObservedAt.UTC(),
		Source:       models.SourceSensor,
	}
}

// FromForecast normalizes the public forecast's first period. The API carries
// no pressure, so the configured constant is substituted. fetchedAt stands in
// when the period has no start time.
func (n *Normalizer) FromForecast(rec models.RawForecastRecord, fetchedAt time.Time) (models.Reading, error) {
	observedAt := fetchedAt.UTC()
	if rec.StartTime != "" {
		t, err := time.Parse(time.RFC3339, rec.StartTime)
		if err != nil {
			return models.Reading{}, fmt.Errorf("%w: bad startTime %q: %v", ErrFormat, rec.StartTime, err)
		}
		observedAt = t.UTC()
	}

	return models.Reading{
		TemperatureF: rec.TemperatureF,
		PressureMb:   n.fallbackPressureMb,
		IsRaining:    mentionsRain(rec.ShortForecast),
		ObservedAt:   observedAt,
		Source:       models.SourceForecast,
	}, nil
}

func mentionsRain(text string) bool {
	text = strings.ToLower(text)
	for _, kw := range rainKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// LocalHour returns t's hour of day in the configured timezone
func (n *Normalizer) LocalHour(t time.Time) int {
	return t.In(n.loc).Hour()
}

// Location returns the configured timezone
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// DayNight applies the night window. Rain takes precedence over night, so
// while raining the night state is left unset (known == false).
func DayNight(hour int, raining bool) (isNight bool, known bool) {
	if raining {
		return false, false
	}
	return hour >= nightStartHour || hour < nightEndHour, true
}

// PressureOutlook maps barometric pressure to a coarse outlook label
func PressureOutlook(pressureMb float64, ok bool) string {
	if !ok {
		return OutlookUnavailable
	}
	switch {
	case pressureMb < 1000:
		return "Stormy/Bad Weather Likely"
	case pressureMb <= 1020:
		return "Mixed or Changing Weather"
	default:
		return "Clear/Fair Weather Likely"
	}
}
