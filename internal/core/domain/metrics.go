package domain

import "time"

// PerformanceMetrics accumulates per-session counters. Derived values
// (throughput, drop rate) are computed, never stored.
// Invariant for the video channel:
// FramesDropped + FramesAccepted == SamplesObserved.
type PerformanceMetrics struct {
	SessionID SessionID     `json:"session_id"`
	Kind      SessionKind   `json:"kind"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	SamplesObserved int64 `json:"samples_observed"`
	FramesAccepted  int64 `json:"frames_accepted"`
	FramesDropped   int64 `json:"frames_dropped"`
	AudioAccepted   int64 `json:"audio_accepted"`
	AudioDropped    int64 `json:"audio_dropped"`

	BytesWritten int64 `json:"bytes_written"`
}

// DropRate returns the fraction of observed video samples that were dropped.
func (m PerformanceMetrics) DropRate() float64 {
	if m.SamplesObserved == 0 {
		return 0
	}
	return float64(m.FramesDropped) / float64(m.SamplesObserved)
}

// Throughput returns written bytes per second of session duration.
func (m PerformanceMetrics) Throughput() float64 {
	secs := m.Duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(m.BytesWritten) / secs
}

type PerformanceReport struct {
	Sessions      int           `json:"sessions"`
	AvgDuration   time.Duration `json:"avg_duration"`
	MinDuration   time.Duration `json:"min_duration"`
	MaxDuration   time.Duration `json:"max_duration"`
	AvgBytes      int64         `json:"avg_bytes"`
	AvgThroughput float64       `json:"avg_throughput"`
	AvgDropRate   float64       `json:"avg_drop_rate"`
}
