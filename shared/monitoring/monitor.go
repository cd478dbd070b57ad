package monitoring

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Monitor tracks the outcome of the most recent scheduled run.
type Monitor struct {
	mu             sync.RWMutex
	logger         *zap.Logger
	lastRunSuccess bool
	lastRunTime    time.Time
	lastSummary    string
	runs           int
	failures       int
}

func NewMonitor(logger *zap.Logger) *Monitor {
	return &Monitor{logger: logger.Named("monitor")}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = true
	m.lastRunTime = time.Now()
	m.lastSummary = summary
	m.runs++
	m.mu.Unlock()

	m.logger.Info("Run completed successfully",
		zap.String("summary", summary),
		zap.Duration("duration", duration))
}

func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	// Partial failures leave the health status alone
	m.logger.Warn("Partial failure", zap.Error(err), zap.Duration("duration", duration))
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = false
	m.lastRunTime = time.Now()
	m.lastSummary = err.Error()
	m.runs++
	m.failures++
	m.mu.Unlock()

	m.logger.Error("Critical failure", zap.Error(err), zap.Duration("duration", duration))
}

func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return true // No runs yet
	}
	return m.lastRunSuccess
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return "No runs yet"
	}

	status := "Last run"
	if !m.lastRunSuccess {
		status = "Last run failed"
	}
	return fmt.Sprintf("%s: %s (%s) - %d runs, %d failures",
		status, m.lastRunTime.Format("Jan 2 15:04"), m.lastSummary, m.runs, m.failures)
}
