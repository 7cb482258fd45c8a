package services

import (
	"fmt"
	"testing"
	"time"

	"screenpipe/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

type recordingObserver struct {
	seen []domain.PerformanceMetrics
}

func (o *recordingObserver) ObserveSession(metrics domain.PerformanceMetrics) {
	o.seen = append(o.seen, metrics)
}

func sessionMetrics(id string, duration time.Duration, bytes int64) domain.PerformanceMetrics {
	return domain.PerformanceMetrics{
		SessionID:       domain.SessionID(id),
		Kind:            domain.KindRecording,
		Duration:        duration,
		SamplesObserved: 100,
		FramesAccepted:  90,
		FramesDropped:   10,
		BytesWritten:    bytes,
	}
}

func TestPerformanceMonitorHistory(t *testing.T) {
	t.Run("evicts oldest beyond capacity", func(t *testing.T) {
		monitor := NewPerformanceMonitor(3, nil)
		for i := 0; i < 5; i++ {
			monitor.ObserveSession(sessionMetrics(fmt.Sprintf("s%d", i), time.Second, 1000))
		}

		history := monitor.History()
		assert.Len(t, history, 3)
		assert.Equal(t, domain.SessionID("s2"), history[0].SessionID)
		assert.Equal(t, domain.SessionID("s4"), history[2].SessionID)
	})

	t.Run("forwards each observation", func(t *testing.T) {
		forward := &recordingObserver{}
		monitor := NewPerformanceMonitor(2, forward)
		for i := 0; i < 4; i++ {
			monitor.ObserveSession(sessionMetrics(fmt.Sprintf("s%d", i), time.Second, 1000))
		}
		// Eviction trims the history, never the forward stream.
		assert.Len(t, forward.seen, 4)
	})

	t.Run("history is a copy", func(t *testing.T) {
		monitor := NewPerformanceMonitor(3, nil)
		monitor.ObserveSession(sessionMetrics("s0", time.Second, 1000))

		history := monitor.History()
		history[0].SessionID = "mutated"
		assert.Equal(t, domain.SessionID("s0"), monitor.History()[0].SessionID)
	})
}

func TestPerformanceMonitorReport(t *testing.T) {
	t.Run("empty history yields an empty report", func(t *testing.T) {
		monitor := NewPerformanceMonitor(10, nil)
		report := monitor.GenerateReport()
		assert.Equal(t, 0, report.Sessions)
		assert.Zero(t, report.AvgDuration)
	})

	t.Run("aggregates duration and byte statistics", func(t *testing.T) {
		monitor := NewPerformanceMonitor(10, nil)
		monitor.ObserveSession(sessionMetrics("s0", 2*time.Second, 2000))
		monitor.ObserveSession(sessionMetrics("s1", 4*time.Second, 4000))

		report := monitor.GenerateReport()
		assert.Equal(t, 2, report.Sessions)
		assert.Equal(t, 3*time.Second, report.AvgDuration)
		assert.Equal(t, 2*time.Second, report.MinDuration)
		assert.Equal(t, 4*time.Second, report.MaxDuration)
		assert.Equal(t, int64(3000), report.AvgBytes)
		assert.InDelta(t, 1000.0, report.AvgThroughput, 0.001)
		assert.InDelta(t, 0.1, report.AvgDropRate, 0.001)
	})
}
