package audit

import "errors"

// WriterStats provides statistics about audit writer operations.
type WriterStats struct {
	// QueueDepth is the current number of pending entries in the queue
	QueueDepth int

	// Enqueued is the total number of entries accepted
	Enqueued int64

	// Dropped is the total number of entries dropped due to backpressure
	Dropped int64

	// Written is the total number of entries persisted
	Written int64

	// Failed is the total number of entries the sink rejected
	Failed int64
}

var (
	// ErrQueueFull is returned when the queue stayed full for MaxWaitTime
	ErrQueueFull = errors.New("audit: queue full, entry dropped")

	// ErrWriterClosed is returned when enqueueing on a closed writer
	ErrWriterClosed = errors.New("audit: writer is closed")

	// ErrFlushTimeout is returned when Flush times out waiting for the queue to drain
	ErrFlushTimeout = errors.New("audit: flush timeout exceeded")

	// ErrCircuitOpen is returned while the breaker rejects writes
	ErrCircuitOpen = errors.New("audit: circuit breaker open")
)
