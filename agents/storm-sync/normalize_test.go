package stormsync

import (
	"errors"
	"testing"
	"time"

	"storm-sync/internal/models"
)

func TestWetnessThreshold(t *testing.T) {
	n := NewNormalizer(time.UTC, 1021.1)

	for _, w := range []int{-1, 0, 1, 250, 498, 499, 500, 501, 800, 1023} {
		reading := n.FromSensor(models.RawSensorRecord{Wetness: w})
		want := w < 500
		if reading.IsRaining != want {
			t.Errorf("wetness %d: expected raining=%v, got %v", w, want, reading.IsRaining)
		}
	}
}

func TestCelsiusConversionExact(t *testing.T) {
	n := NewNormalizer(time.UTC, 1021.1)

	for _, c := range []float64{-40, -17.5, 0, 0.1, 20, 21.37, 37, 100} {
		reading := n.FromSensor(models.RawSensorRecord{TemperatureC: c})
		if want := c*9/5 + 32; reading.TemperatureF != want {
			t.Errorf("%.2f°C: expected %v°F, got %v°F", c, want, reading.TemperatureF)
		}
	}

	if got := CelsiusToFahrenheit(20); got != 68 {
		t.Errorf("Expected 20°C = 68°F, got %v", got)
	}
}

func TestFromSensor(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	observed := time.Date(2025, 3, 1, 14, 0, 0, 0, est)
	n := NewNormalizer(est, 1021.1)

	reading := n.FromSensor(models.RawSensorRecord{
		TemperatureC: 20,
		PressureMb:   1012,
		Wetness:      800,
		ObservedAt:   observed,
	})

	if reading.TemperatureF != 68.0 || reading.PressureMb != 1012 || reading.IsRaining {
		t.Errorf("Unexpected reading: %+v", reading)
	}
	if reading.ObservedAt.Location() != time.UTC || !reading.ObservedAt.Equal(observed) {
		t.Errorf("Expected observed time normalized to UTC, got %v", reading.ObservedAt)
	}
	if reading.Source != models.SourceSensor {
		t.Errorf("Expected source %s, got %s", models.SourceSensor, reading.Source)
	}
	if n.LocalHour(reading.ObservedAt) != 14 {
		t.Errorf("Expected local hour 14, got %d", n.LocalHour(reading.ObservedAt))
	}
}

func TestFromForecast(t *testing.T) {
	n := NewNormalizer(time.UTC, 1021.1)
	fetchedAt := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		rec         models.RawForecastRecord
		wantRaining bool
		wantTime    time.Time
		wantErr     error
	}{
		{
			name:        "Rain likely",
			rec:         models.RawForecastRecord{TemperatureF: 55, ShortForecast: "Rain likely"},
			wantRaining: true,
			wantTime:    fetchedAt,
		},
		{
			name:        "Showers",
			rec:         models.RawForecastRecord{TemperatureF: 61, ShortForecast: "Chance Rain Showers"},
			wantRaining: true,
			wantTime:    fetchedAt,
		},
		{
			name:        "Sunny",
			rec:         models.RawForecastRecord{TemperatureF: 72, ShortForecast: "Mostly Sunny", DetailedForecast: "Rising pressure, sunny."},
			wantRaining: false,
			wantTime:    fetchedAt,
		},
		{
			name:        "Start time parsed",
			rec:         models.RawForecastRecord{TemperatureF: 50, ShortForecast: "Cloudy", StartTime: "2025-03-01T09:00:00-05:00"},
			wantRaining: false,
			wantTime:    time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC),
		},
		{
			name:    "Malformed start time",
			rec:     models.RawForecastRecord{TemperatureF: 50, StartTime: "tomorrow-ish"},
			wantErr: ErrFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := n.FromForecast(tt.rec, fetchedAt)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if reading.TemperatureF != tt.rec.TemperatureF {
				t.Errorf("Expected temperature passthrough %v, got %v", tt.rec.TemperatureF, reading.TemperatureF)
			}
			if reading.PressureMb != 1021.1 {
				t.Errorf("Expected fallback pressure 1021.1, got %v", reading.PressureMb)
			}
			if reading.IsRaining != tt.wantRaining {
				t.Errorf("Expected raining=%v, got %v", tt.wantRaining, reading.IsRaining)
			}
			if !reading.ObservedAt.Equal(tt.wantTime) {
				t.Errorf("Expected observed %v, got %v", tt.wantTime, reading.ObservedAt)
			}
			if reading.Source != models.SourceForecast {
				t.Errorf("Expected source %s, got %s", models.SourceForecast, reading.Source)
			}
		})
	}
}

func TestDayNight(t *testing.T) {
	for h := 0; h < 24; h++ {
		isNight, known := DayNight(h, false)
		want := h >= 19 || h < 7
		if !known {
			t.Errorf("hour %d: expected night state to be known when dry", h)
		}
		if isNight != want {
			t.Errorf("hour %d: expected night=%v, got %v", h, want, isNight)
		}

		isNight, known = DayNight(h, true)
		if known || isNight {
			t.Errorf("hour %d: expected night state unset while raining, got night=%v known=%v", h, isNight, known)
		}
	}
}

func TestPressureOutlook(t *testing.T) {
	tests := []struct {
		pressure float64
		ok       bool
		expected string
	}{
		{985, true, "Stormy/Bad Weather Likely"},
		{999.9, true, "Stormy/Bad Weather Likely"},
		{1000, true, "Mixed or Changing Weather"},
		{1012, true, "Mixed or Changing Weather"},
		{1020, true, "Mixed or Changing Weather"},
		{1020.1, true, "Clear/Fair Weather Likely"},
		{1021.1, false, OutlookUnavailable},
	}

	for _, tt := range tests {
		if got := PressureOutlook(tt.pressure, tt.ok); got != tt.expected {
			t.Errorf("PressureOutlook(%v, %v) = %s, want %s", tt.pressure, tt.ok, got, tt.expected)
		}
	}
}
