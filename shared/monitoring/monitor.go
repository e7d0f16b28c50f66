package monitoring

import (
	"fmt"
	"sync"
	"time"

	"storm-sync/shared/logging"
)

type Monitor struct {
	mu             sync.RWMutex
	lastRunSuccess bool
	lastRunTime    time.Time
	partialErrors  int
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = true
	m.lastRunTime = time.Now()
	m.mu.Unlock()

	logging.Get().Infow("✅ Run completed", "summary", summary, "duration", duration)
}

// RecordPartialFailure logs a degraded field without changing health status
func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.partialErrors++
	m.mu.Unlock()

	logging.Get().Warnw("⚠️  PARTIAL FAILURE", "error", err, "duration", duration)
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = false
	m.lastRunTime = time.Now()
	m.mu.Unlock()

	logging.Get().Errorw("🚨 CRITICAL FAILURE", "error", err, "duration", duration)
}

func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return true // No runs yet, assume healthy
	}
	return m.lastRunSuccess
}

// PartialFailures returns how many degraded fields have been recorded since start
func (m *Monitor) PartialFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.partialErrors
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return "No runs yet"
	}

	if m.lastRunSuccess {
		return fmt.Sprintf("✅ Last run: %s", m.lastRunTime.Format("Jan 2 15:04"))
	}
	return fmt.Sprintf("❌ Last run failed: %s", m.lastRunTime.Format("Jan 2 15:04"))
}
