package services

import (
	"sync"
	"time"

	"screenpipe/internal/core/domain"
	"screenpipe/internal/core/ports"
)

// PerformanceMonitor keeps a fixed-capacity rolling history of per-session
// metrics for diagnostics. It observes completed sessions only and never
// participates in the hot path.
type PerformanceMonitor struct {
	mu       sync.RWMutex
	capacity int
	history  []domain.PerformanceMetrics

	// forward receives each recorded session (e.g. the Prometheus collector).
	forward ports.SessionObserver
}

// NewPerformanceMonitor creates a monitor retaining up to capacity entries,
// oldest evicted first. forward may be nil.
func NewPerformanceMonitor(capacity int, forward ports.SessionObserver) *PerformanceMonitor {
	if capacity <= 0 {
		capacity = 100
	}
	return &PerformanceMonitor{
		capacity: capacity,
		history:  make([]domain.PerformanceMetrics, 0, capacity),
		forward:  forward,
	}
}

// ObserveSession appends one finished session's metrics.
func (m *PerformanceMonitor) ObserveSession(metrics domain.PerformanceMetrics) {
	m.mu.Lock()
	if len(m.history) == m.capacity {
		m.history = append(m.history[1:], metrics)
	} else {
		m.history = append(m.history, metrics)
	}
	m.mu.Unlock()

	if m.forward != nil {
		m.forward.ObserveSession(metrics)
	}
}

// History returns a copy of the retained metrics, oldest first.
func (m *PerformanceMonitor) History() []domain.PerformanceMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.PerformanceMetrics, len(m.history))
	copy(out, m.history)
	return out
}

// GenerateReport aggregates the retained history.
func (m *PerformanceMonitor) GenerateReport() domain.PerformanceReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := domain.PerformanceReport{Sessions: len(m.history)}
	if len(m.history) == 0 {
		return report
	}

	var (
		totalDuration   time.Duration
		totalBytes      int64
		totalThroughput float64
		totalDropRate   float64
	)
	report.MinDuration = m.history[0].Duration
	report.MaxDuration = m.history[0].Duration

	for _, entry := range m.history {
		totalDuration += entry.Duration
		totalBytes += entry.BytesWritten
		totalThroughput += entry.Throughput()
		totalDropRate += entry.DropRate()
		if entry.Duration < report.MinDuration {
			report.MinDuration = entry.Duration
		}
		if entry.Duration > report.MaxDuration {
			report.MaxDuration = entry.Duration
		}
	}

	n := int64(len(m.history))
	report.AvgDuration = totalDuration / time.Duration(n)
	report.AvgBytes = totalBytes / n
	report.AvgThroughput = totalThroughput / float64(n)
	report.AvgDropRate = totalDropRate / float64(n)
	return report
}
