package metrics

import (
	"time"
)

// Collector records ledger and audit metrics.
type Collector interface {
	// Ledger operations; outcome is errors.Classify of the result.
	RecordOperation(operation, outcome string, duration time.Duration)

	// Audit trail
	RecordAuditWrite(success bool, duration time.Duration)
	RecordAuditDropped()
	RecordAuditQueueDepth(depth int)

	// Circuit breaker in front of the audit repositories
	RecordCircuitState(state CircuitState)

	// Idempotent replays
	RecordIdempotencyHit()
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector discards everything. It is the default when metrics are not wired.
type NoOpCollector struct{}

func (NoOpCollector) RecordOperation(operation, outcome string, duration time.Duration) {}

func (NoOpCollector) RecordAuditWrite(success bool, duration time.Duration) {}

func (NoOpCollector) RecordAuditDropped() {}

func (NoOpCollector) RecordAuditQueueDepth(depth int) {}

func (NoOpCollector) RecordCircuitState(state CircuitState) {}

func (NoOpCollector) RecordIdempotencyHit() {}
