package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records sync engine activity and queue health.
type SyncMetrics struct {
	attempts   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	queueDepth *prometheus.GaugeVec
	flagged    prometheus.Counter
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_sync_attempts_total",
		Help: "Sale submission attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sale_sync_duration_seconds",
		Help:    "Duration of sale submission attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sale_queue_depth",
		Help: "Queued sales by status.",
	}, []string{"status"})
	flagged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sale_queue_flagged_total",
		Help: "Queued sales flagged for operator review by the staleness sweep.",
	})
	reg.MustRegister(attempts, duration, queueDepth, flagged)
	return &SyncMetrics{
		attempts:   attempts,
		duration:   duration,
		queueDepth: queueDepth,
		flagged:    flagged,
	}
}

// ObserveAttempt records one submission attempt with its outcome and duration.
func (s *SyncMetrics) ObserveAttempt(outcome string, duration time.Duration) {
	if s == nil || s.attempts == nil {
		return
	}
	label := normalizeLabel(outcome)
	s.attempts.WithLabelValues(label).Inc()
	s.duration.WithLabelValues(label).Observe(duration.Seconds())
}

// SetQueueDepth publishes the current number of entries in the given status.
func (s *SyncMetrics) SetQueueDepth(status string, depth int64) {
	if s == nil || s.queueDepth == nil {
		return
	}
	s.queueDepth.WithLabelValues(normalizeLabel(status)).Set(float64(depth))
}

// IncFlagged counts an entry flagged for operator review.
func (s *SyncMetrics) IncFlagged() {
	if s == nil || s.flagged == nil {
		return
	}
	s.flagged.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
