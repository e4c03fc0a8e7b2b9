package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for engine execution monitoring.
//
// Metrics exposed (all namespaced with "threadflow_"):
//
//   - turns_total (counter): completed Invoke calls.
//     Labels: status (completed, paused, error).
//   - node_latency_ms (histogram): handler execution duration.
//     Labels: node_id, status (success, error, timeout, interrupt).
//   - interrupts_total (counter): pauses raised per node.
//     Labels: node_id.
//   - checkpoint_append_latency_ms (histogram): store append duration.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewMetrics(registry)
//	engine := graph.New(g, st, graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// All methods are safe on a nil receiver, so the engine records
// unconditionally.
type Metrics struct {
	turns         *prometheus.CounterVec
	nodeLatency   *prometheus.HistogramVec
	interrupts    *prometheus.CounterVec
	appendLatency prometheus.Histogram
}

// NewMetrics creates and registers the engine metrics with the given registry
// (prometheus.DefaultRegisterer when nil).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "threadflow",
			Name:      "turns_total",
			Help:      "Completed Invoke calls by outcome",
		}, []string{"status"}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "threadflow",
			Name:      "node_latency_ms",
			Help:      "Handler execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node_id", "status"}),
		interrupts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "threadflow",
			Name:      "interrupts_total",
			Help:      "Pauses raised awaiting external input, per node",
		}, []string{"node_id"}),
		appendLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "threadflow",
			Name:      "checkpoint_append_latency_ms",
			Help:      "Checkpoint append duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000},
		}),
	}
}

// RecordTurn counts a finished Invoke call by outcome.
func (m *Metrics) RecordTurn(status string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(status).Inc()
}

// RecordNodeLatency records one handler execution.
func (m *Metrics) RecordNodeLatency(nodeID string, latency time.Duration, status string) {
	if m == nil {
		return
	}
	m.nodeLatency.WithLabelValues(nodeID, status).Observe(float64(latency.Milliseconds()))
}

// RecordInterrupt counts a pause raised by the given node.
func (m *Metrics) RecordInterrupt(nodeID string) {
	if m == nil {
		return
	}
	m.interrupts.WithLabelValues(nodeID).Inc()
}

// RecordAppendLatency records one checkpoint append.
func (m *Metrics) RecordAppendLatency(latency time.Duration) {
	if m == nil {
		return
	}
	m.appendLatency.Observe(float64(latency.Milliseconds()))
}
