// Package metrics exposes the I/O pipeline to Prometheus.
//
// A nil *Metrics is valid and records nothing, so callers never need to check
// whether metrics are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type Metrics struct {
	submitted  *prometheus.CounterVec
	completed  *prometheus.CounterVec
	bytes      *prometheus.CounterVec
	queueDepth *prometheus.GaugeVec
	latency    *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		submitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncfs_work_submitted_total",
				Help: "Work items submitted by operation",
			},
			[]string{"op"}, // "read", "write"
		),
		completed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncfs_work_completed_total",
				Help: "Work items completed by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		bytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncfs_bytes_total",
				Help: "Bytes moved by each stage",
			},
			[]string{"stage", "direction"}, // stage: "storage", "codec"; direction: "in", "out"
		),
		queueDepth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "asyncfs_queue_depth",
				Help: "Items waiting in a stage queue",
			},
			[]string{"queue"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "asyncfs_work_duration_seconds",
				Help:    "Time from submission to completion",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"op"},
		),
	}
}

func (m *Metrics) ObserveSubmit(op string) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveComplete(op string, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.completed.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) AddBytes(stage string, direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytes.WithLabelValues(stage, direction).Add(float64(n))
}

func (m *Metrics) SetQueueDepth(queue string, n int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(n))
}
