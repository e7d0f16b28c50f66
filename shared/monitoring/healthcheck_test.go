package monitoring

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storm-sync/internal/models"
)

type staticConditions struct {
	c models.Conditions
}

func (s staticConditions) Conditions() models.Conditions { return s.c }

func TestHealthEndpoint(t *testing.T) {
	monitor := NewMonitor()
	server := NewHealthServer(monitor, nil, "")

	tests := []struct {
		name       string
		record     func()
		wantStatus int
		wantPrefix string
	}{
		{
			name:       "No runs yet",
			record:     func() {},
			wantStatus: http.StatusOK,
			wantPrefix: "OK - No runs yet",
		},
		{
			name:       "After critical failure",
			record:     func() { monitor.RecordCriticalFailure(errors.New("boom"), time.Second) },
			wantStatus: http.StatusServiceUnavailable,
			wantPrefix: "Service unhealthy",
		},
		{
			name:       "Partial failure keeps status",
			record:     func() { monitor.RecordPartialFailure(errors.New("meh"), time.Second) },
			wantStatus: http.StatusServiceUnavailable,
			wantPrefix: "Service unhealthy",
		},
		{
			name:       "Recovered",
			record:     func() { monitor.RecordSuccess("ok", time.Second) },
			wantStatus: http.StatusOK,
			wantPrefix: "OK - ✅ Last run",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.record()

			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if !strings.HasPrefix(string(body), tt.wantPrefix) {
				t.Errorf("Expected body to start with '%s', got '%s'", tt.wantPrefix, body)
			}
		})
	}

	if monitor.PartialFailures() != 1 {
		t.Errorf("Expected 1 partial failure recorded, got %d", monitor.PartialFailures())
	}
}

func TestConditionsEndpoint(t *testing.T) {
	isNight := true
	want := models.Conditions{
		Temperature: "68.0°F",
		Pressure:    "1012.00 mb",
		Raining:     "No",
		IsNight:     &isNight,
		Prediction:  "Clear and cool overnight.",
	}
	server := NewHealthServer(NewMonitor(), staticConditions{c: want}, "9090")

	resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/conditions", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var got models.Conditions
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode conditions: %v", err)
	}
	if got.Temperature != want.Temperature || got.Prediction != want.Prediction {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if got.IsNight == nil || !*got.IsNight {
		t.Error("Expected is_night=true in response")
	}
}

func TestConditionsEndpointAbsentWithoutProvider(t *testing.T) {
	server := NewHealthServer(NewMonitor(), nil, "")

	resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/conditions", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}
