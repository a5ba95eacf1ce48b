// Package audit forwards ledger activity to durable storage without holding
// up the ledger. Entries are queued and written by a small worker pool; a
// slow or failing sink costs dropped audit entries, never ledger latency.
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/riteshkumar/ledger-assistant/internal/metrics"
)

// WriterConfig configures the writer behavior.
type WriterConfig struct {
	// QueueSize is the bounded queue size (default: 1000)
	QueueSize int

	// Workers is the number of concurrent workers (default: 2)
	Workers int

	// MaxWaitTime is the max time Enqueue waits on a full queue (default: 10ms)
	MaxWaitTime time.Duration

	// ReportInterval is how often queue depth is reported (default: 5s)
	ReportInterval time.Duration
}

type Writer struct {
	sink    Sink
	queue   chan Entry
	workers int
	config  WriterConfig
	metrics metrics.Collector
	logger  *zap.Logger

	// mu orders Enqueue sends before Close; closed is set under the write lock.
	mu     sync.RWMutex
	closed bool

	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	// pending counts entries accepted but not yet handled by a worker
	pending  atomic.Int64
	enqueued atomic.Int64
	dropped  atomic.Int64
	written  atomic.Int64
	failed   atomic.Int64

	reportTicker *time.Ticker
	reportStop   chan struct{}
}

// NewWriter starts the worker pool. The writer must be closed with Close.
func NewWriter(sink Sink, config WriterConfig, collector metrics.Collector, logger *zap.Logger) *Writer {
	if config.QueueSize <= 0 {
		config.QueueSize = 1000
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.MaxWaitTime == 0 {
		config.MaxWaitTime = 10 * time.Millisecond
	}
	if config.ReportInterval <= 0 {
		config.ReportInterval = 5 * time.Second
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Writer{
		sink:         sink,
		queue:        make(chan Entry, config.QueueSize),
		workers:      config.Workers,
		config:       config,
		metrics:      collector,
		logger:       logger.Named("audit"),
		ctx:          ctx,
		cancelFunc:   cancel,
		reportTicker: time.NewTicker(config.ReportInterval),
		reportStop:   make(chan struct{}),
	}

	for i := 0; i < config.Workers; i++ {
		w.wg.Add(1)
		go w.worker()
	}
	go w.reportMetrics()

	return w
}

// Enqueue hands entry to the workers. If the queue is full it waits up to
// MaxWaitTime and then drops the entry with ErrQueueFull.
func (w *Writer) Enqueue(ctx context.Context, entry Entry) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.drop()
		return ErrWriterClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	timer := time.NewTimer(w.config.MaxWaitTime)
	defer timer.Stop()

	w.pending.Add(1)
	select {
	case w.queue <- entry:
		w.enqueued.Add(1)
		return nil
	case <-timer.C:
		w.pending.Add(-1)
		w.drop()
		return ErrQueueFull
	case <-ctx.Done():
		w.pending.Add(-1)
		return ctx.Err()
	}
}

func (w *Writer) drop() {
	w.dropped.Add(1)
	w.metrics.RecordAuditDropped()
}

func (w *Writer) worker() {
	defer w.wg.Done()

	for {
		select {
		case entry := <-w.queue:
			w.process(entry)
		case <-w.ctx.Done():
			// Drain what is left before exiting.
			for {
				select {
				case entry := <-w.queue:
					w.process(entry)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) process(entry Entry) {
	defer w.pending.Add(-1)

	start := time.Now()
	err := w.sink.Write(context.Background(), entry)
	duration := time.Since(start)
	w.metrics.RecordAuditWrite(err == nil, duration)

	if err != nil {
		w.failed.Add(1)
		fields := []zap.Field{zap.Duration("duration", duration), zap.Error(err)}
		if entry.Log != nil {
			fields = append(fields,
				zap.String("entity_type", entry.Log.EntityType),
				zap.String("entity_id", entry.Log.EntityID),
				zap.String("action", entry.Log.Action))
		}
		if entry.Journal != nil {
			fields = append(fields, zap.String("transaction_id", entry.Journal.ID))
		}
		w.logger.Error("audit write failed", fields...)
		return
	}
	w.written.Add(1)
}

// Flush waits until every accepted entry has been handled or timeout passes.
func (w *Writer) Flush(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		if w.pending.Load() == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrFlushTimeout
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Close stops accepting entries and waits for the workers to drain the queue.
// It is safe to call more than once.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		// Waits for in-progress Enqueue calls, so every accepted entry is
		// in the queue before the workers start draining.
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()

		close(w.reportStop)
		w.reportTicker.Stop()
		w.cancelFunc()
		w.wg.Wait()
		w.metrics.RecordAuditQueueDepth(len(w.queue))
	})
	return nil
}

func (w *Writer) reportMetrics() {
	for {
		select {
		case <-w.reportTicker.C:
			w.metrics.RecordAuditQueueDepth(len(w.queue))
		case <-w.reportStop:
			return
		}
	}
}

func (w *Writer) Stats() WriterStats {
	return WriterStats{
		QueueDepth: len(w.queue),
		Enqueued:   w.enqueued.Load(),
		Dropped:    w.dropped.Load(),
		Written:    w.written.Load(),
		Failed:     w.failed.Load(),
	}
}
