package sensoruploader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storm-sync/internal/models"
)

// ErrMalformedLine means a serial line was not a sensor report
var ErrMalformedLine = errors.New("malformed sensor line")

// ParseLine parses one sensor report such as
//
//	temperature: 21.5, pressure: 1012.3, wetness: 640
//
// Temperature is in °C and pressure in mb. Metrics missing from the line are
// zero; unknown metrics are ignored. The returned record has no timestamp,
// so the store stamps it on write.
func ParseLine(line string) (models.RawSensorRecord, error) {
	var rec models.RawSensorRecord

	line = strings.TrimSpace(line)
	if line == "" {
		return rec, fmt.Errorf("%w: empty line", ErrMalformedLine)
	}

	known := 0
	for _, field := range strings.Split(line, ",") {
		key, raw, ok := strings.Cut(field, ":")
		if !ok {
			return rec, fmt.Errorf("%w: field %q has no value", ErrMalformedLine, strings.TrimSpace(field))
		}
		key = strings.ToLower(strings.TrimSpace(key))

		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return rec, fmt.Errorf("%w: %s is not a number: %v", ErrMalformedLine, key, err)
		}

		switch key {
		case "temperature":
			rec.TemperatureC = value
		case "pressure":
			rec.PressureMb = value
		case "wetness":
			// Truncate so fractional values keep their side of the rain threshold
			rec.Wetness = int(value)
		default:
			continue
		}
		known++
	}

	if known == 0 {
		return rec, fmt.Errorf("%w: no temperature, pressure or wetness in %q", ErrMalformedLine, line)
	}
	return rec, nil
}
