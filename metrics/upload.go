package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UploadMetrics records ingestion activity. A nil *UploadMetrics discards everything.
type UploadMetrics struct {
	ingestions   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	stagedBytes  prometheus.Counter
	hookFailures *prometheus.CounterVec
}

// NewUploadMetrics creates the ingestion collectors and registers them with reg.
func NewUploadMetrics(namespace string, reg prometheus.Registerer) (*UploadMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &UploadMetrics{
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Ingestions by input kind and result class.",
		}, []string{"kind", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time spent ingesting a single upload or reference.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		stagedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staged_bytes_total",
			Help:      "Bytes copied to temporary staging files.",
		}),
		hookFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hook_failures_total",
			Help:      "Hook failures by pipeline stage and hook name.",
		}, []string{"stage", "hook"}),
	}

	for _, c := range []prometheus.Collector{m.ingestions, m.duration, m.stagedBytes, m.hookFailures} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register upload metrics: %w", err)
		}
	}
	return m, nil
}

func (m *UploadMetrics) IngestDone(kind, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(kind, result).Inc()
	m.duration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *UploadMetrics) StagedBytes(n int64) {
	if m == nil {
		return
	}
	m.stagedBytes.Add(float64(n))
}

func (m *UploadMetrics) HookFailed(stage, hook string) {
	if m == nil {
		return
	}
	m.hookFailures.WithLabelValues(stage, hook).Inc()
}
