package stormsync

import (
	"errors"
	"fmt"

	"storm-sync/shared/scheduler"
)

var (
	// ErrSourceUnavailable means a store or API could not be reached
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrNoData means a source answered with an empty result
	ErrNoData = errors.New("no data")
	// ErrGenerationFailure means no forecast sentence could be produced
	ErrGenerationFailure = errors.New("prediction generation failed")
	// ErrFormat means a payload did not have the expected shape
	ErrFormat = errors.New("unexpected payload format")
	// ErrIterationInProgress is returned when a poll starts while the previous one is still running
	ErrIterationInProgress = fmt.Errorf("poll iteration already in progress: %w", scheduler.ErrSkipped)
)

// Sentinel display values
const (
	NotAvailable       = "N/A"
	Loading            = "Loading..."
	PredictionError    = "Error generating prediction."
	OutlookUnavailable = "Unable to determine."
)
