package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector for Prometheus.
type PrometheusCollector struct {
	operations        *prometheus.CounterVec
	operationLatency  *prometheus.HistogramVec
	auditWrites       *prometheus.CounterVec
	auditLatency      prometheus.Histogram
	auditDropped      prometheus.Counter
	auditQueueDepth   prometheus.Gauge
	circuitState      prometheus.Gauge
	circuitOpens      prometheus.Counter
	idempotencyReplay prometheus.Counter
}

func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Ledger operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Ledger operation latency",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10µs to ~160ms
			},
			[]string{"operation"},
		),
		auditWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_writes_total",
				Help:      "Audit entries written by status",
			},
			[]string{"status"},
		),
		auditLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "audit_write_duration_seconds",
				Help:      "Audit write latency",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
			},
		),
		auditDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_dropped_total",
				Help:      "Audit entries dropped because the queue was full or closed",
			},
		),
		auditQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "audit_queue_depth",
				Help:      "Current audit writer queue depth",
			},
		),
		circuitState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "audit_circuit_state",
				Help:      "Audit circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
		),
		circuitOpens: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_circuit_opens_total",
				Help:      "Times the audit circuit breaker opened",
			},
		),
		idempotencyReplay: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "idempotency_replays_total",
				Help:      "Responses replayed for a repeated Idempotency-Key",
			},
		),
	}
}

// Register registers all metrics with the given Prometheus registry.
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.operations,
		pc.operationLatency,
		pc.auditWrites,
		pc.auditLatency,
		pc.auditDropped,
		pc.auditQueueDepth,
		pc.circuitState,
		pc.circuitOpens,
		pc.idempotencyReplay,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

func (pc *PrometheusCollector) RecordOperation(operation, outcome string, duration time.Duration) {
	pc.operations.WithLabelValues(operation, outcome).Inc()
	pc.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordAuditWrite(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	pc.auditWrites.WithLabelValues(status).Inc()
	pc.auditLatency.Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordAuditDropped() {
	pc.auditDropped.Inc()
}

func (pc *PrometheusCollector) RecordAuditQueueDepth(depth int) {
	pc.auditQueueDepth.Set(float64(depth))
}

func (pc *PrometheusCollector) RecordCircuitState(state CircuitState) {
	pc.circuitState.Set(float64(state))
	if state == CircuitOpen {
		pc.circuitOpens.Inc()
	}
}

func (pc *PrometheusCollector) RecordIdempotencyHit() {
	pc.idempotencyReplay.Inc()
}
