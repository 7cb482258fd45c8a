package monitoring

import (
	"screenpipe/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	sessionsTotal *prometheus.CounterVec

	samplesObservedTotal prometheus.Counter
	framesAcceptedTotal  prometheus.Counter
	framesDroppedTotal   prometheus.Counter
	bytesWrittenTotal    prometheus.Counter

	sessionDuration prometheus.Histogram
	sessionDropRate prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		sessionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "screenpipe_sessions_total",
			Help: "Total number of finished capture sessions",
		}, []string{"kind"}),

		samplesObservedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "screenpipe_samples_observed_total",
			Help: "Total number of video samples delivered by the capture service",
		}),

		framesAcceptedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "screenpipe_frames_accepted_total",
			Help: "Total number of video frames written to containers",
		}),

		framesDroppedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "screenpipe_frames_dropped_total",
			Help: "Total number of video frames dropped by throttling or backpressure",
		}),

		bytesWrittenTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "screenpipe_bytes_written_total",
			Help: "Total container bytes durably written",
		}),

		sessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "screenpipe_session_duration_seconds",
			Help:    "Duration of finished capture sessions",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}),

		sessionDropRate: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "screenpipe_session_drop_rate",
			Help:    "Fraction of observed video samples dropped per session",
			Buckets: []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 1},
		}),
	}
}

func (p *PrometheusCollector) ObserveSession(metrics domain.PerformanceMetrics) {
	p.sessionsTotal.WithLabelValues(string(metrics.Kind)).Inc()
	p.samplesObservedTotal.Add(float64(metrics.SamplesObserved))
	p.framesAcceptedTotal.Add(float64(metrics.FramesAccepted))
	p.framesDroppedTotal.Add(float64(metrics.FramesDropped))
	p.bytesWrittenTotal.Add(float64(metrics.BytesWritten))
	p.sessionDuration.Observe(metrics.Duration.Seconds())
	p.sessionDropRate.Observe(metrics.DropRate())
}
