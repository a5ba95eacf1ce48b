package audit

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/riteshkumar/ledger-assistant/internal/metrics"
)

// BreakerConfig configures the circuit breaker in front of a Sink.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open. Default: 1
	MaxRequests uint32
	// Interval after which closed-state counts are cleared. 0 never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open. Default: 30s
	Timeout time.Duration
	// ConsecutiveFailures that trip the breaker. Default: 5
	ConsecutiveFailures uint32
	// WriteTimeout bounds a single Write. 0 disables it.
	WriteTimeout time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
		WriteTimeout:        5 * time.Second,
	}
}

// BreakerSink stops calling a failing sink until it has had time to recover.
type BreakerSink struct {
	sink    Sink
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	logger  *zap.Logger
}

func NewBreakerSink(sink Sink, config BreakerConfig, collector metrics.Collector, logger *zap.Logger) *BreakerSink {
	if config.ConsecutiveFailures == 0 {
		config.ConsecutiveFailures = 5
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	bs := &BreakerSink{
		sink:    sink,
		timeout: config.WriteTimeout,
		metrics: collector,
		logger:  logger.Named("audit-breaker"),
	}

	bs.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "audit",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			bs.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			bs.metrics.RecordCircuitState(state)
		},
	})

	return bs
}

func (s *BreakerSink) Write(ctx context.Context, entry Entry) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.sink.Write(ctx, entry)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return ErrCircuitOpen
	}
	return err
}

// State reports the current breaker state.
func (s *BreakerSink) State() metrics.CircuitState {
	switch s.cb.State() {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}
