// Package metrics holds the Prometheus instrumentation of the bridge indexer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bridgescope"

// Indexer counts what the runner fetched, derived and stored.
type Indexer struct {
	registry *prometheus.Registry

	logsProcessed   *prometheus.CounterVec
	resolveFailures *prometheus.CounterVec
	rpcFailures     *prometheus.CounterVec
	recordsWritten  prometheus.Counter
	lastBlock       prometheus.Gauge
	batchLatency    prometheus.Histogram
}

// NewIndexer registers the indexer collectors on a private registry.
func NewIndexer() *Indexer {
	m := &Indexer{
		registry: prometheus.NewRegistry(),
		logsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_logs_processed_total",
				Help:      "Gateway logs turned into bridge records, partitioned by record type.",
			},
			[]string{"type"},
		),
		resolveFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolve_failures_total",
				Help:      "Bridge records stored without a derived identifier, partitioned by field.",
			},
			[]string{"field"},
		),
		rpcFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_failures_total",
				Help:      "Failed RPC attempts, partitioned by operation.",
			},
			[]string{"operation"},
		),
		recordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Bridge records written to storage.",
		}),
		lastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_processed_block",
			Help:      "Last L1 block whose batch was stored.",
		}),
		batchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time to fetch, resolve and store one block batch.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	m.registry.MustRegister(
		m.logsProcessed,
		m.resolveFailures,
		m.rpcFailures,
		m.recordsWritten,
		m.lastBlock,
		m.batchLatency,
		collectors.NewGoCollector(),
	)
	return m
}

// LogProcessed counts one stored record of the given type.
func (m *Indexer) LogProcessed(recordType string) {
	if m == nil {
		return
	}
	m.logsProcessed.WithLabelValues(recordType).Inc()
}

// ResolveFailed counts a record stored without field.
func (m *Indexer) ResolveFailed(field string) {
	if m == nil {
		return
	}
	m.resolveFailures.WithLabelValues(field).Inc()
}

// RPCFailed counts a failed RPC attempt.
func (m *Indexer) RPCFailed(operation string) {
	if m == nil {
		return
	}
	m.rpcFailures.WithLabelValues(operation).Inc()
}

// RecordsWritten adds n stored records.
func (m *Indexer) RecordsWritten(n int) {
	if m == nil {
		return
	}
	m.recordsWritten.Add(float64(n))
}

// BatchDone records the end of a block batch.
func (m *Indexer) BatchDone(toBlock uint64, seconds float64) {
	if m == nil {
		return
	}
	m.lastBlock.Set(float64(toBlock))
	m.batchLatency.Observe(seconds)
}

// Registry exposes the registry for tests and custom handlers.
func (m *Indexer) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Indexer) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
