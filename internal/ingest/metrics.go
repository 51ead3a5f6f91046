package ingest

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the ingestion pipeline.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	failures      *prometheus.CounterVec
	active        prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns the instance registered with the global registry.
// Collectors are created once so repeated orchestrators do not panic on
// duplicate registration.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers the collectors with reg and panics on conflict.
// Tests should pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "photofeed",
				Subsystem: "ingest",
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each ingestion stage.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage", "status"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "photofeed",
				Subsystem: "ingest",
				Name:      "failures_total",
				Help:      "Uploads that ended rejected or failed, by stage and error kind.",
			},
			[]string{"stage", "kind"},
		),
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "photofeed",
				Subsystem: "ingest",
				Name:      "active",
				Help:      "Uploads currently in the pipeline.",
			},
		),
	}
	reg.MustRegister(m.stageDuration, m.failures, m.active)
	return m
}

func (m *Metrics) observeStage(stage Stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(string(stage), status).Observe(d.Seconds())
}

func (m *Metrics) incFailure(stage Stage, kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(string(stage), kind).Inc()
}

func (m *Metrics) begin() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *Metrics) end() {
	if m == nil {
		return
	}
	m.active.Dec()
}
