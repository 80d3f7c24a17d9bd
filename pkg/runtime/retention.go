package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// RetentionSweeper periodically prunes audit events older than a retention window.
type RetentionSweeper struct {
	pruner    AuditPruner
	retention time.Duration
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// SweeperOption configures a RetentionSweeper.
type SweeperOption func(*RetentionSweeper)

// WithSweepTimeout bounds each prune call.
func WithSweepTimeout(timeout time.Duration) SweeperOption {
	return func(s *RetentionSweeper) {
		s.timeout = timeout
	}
}

// WithSweepLogger sets the sweeper logger.
func WithSweepLogger(logger *slog.Logger) SweeperOption {
	return func(s *RetentionSweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSweepClock overrides the clock used to compute the cutoff.
func WithSweepClock(now func() time.Time) SweeperOption {
	return func(s *RetentionSweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRetentionSweeper prunes events older than retention every interval.
// A zero interval or retention disables the sweeper.
func NewRetentionSweeper(pruner AuditPruner, retention, interval time.Duration, opts ...SweeperOption) *RetentionSweeper {
	s := &RetentionSweeper{
		pruner:    pruner,
		retention: retention,
		interval:  interval,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the sweep loop. Calling Start twice restarts it.
func (s *RetentionSweeper) Start(ctx context.Context) {
	if s.interval <= 0 || s.retention <= 0 || s.pruner == nil {
		s.logger.Info("runtime.audit.sweeper.disabled",
			slog.Duration("interval", s.interval),
			slog.Duration("retention", s.retention),
		)
		return
	}
	s.Stop()
	initSweepMetrics()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.logger.Info("runtime.audit.sweeper.start",
			slog.Duration("interval", s.interval),
			slog.Duration("retention", s.retention),
		)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("runtime.audit.sweeper.stop")
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit.
func (s *RetentionSweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Sweep runs one prune pass and returns the number of removed events.
func (s *RetentionSweeper) Sweep(ctx context.Context) int {
	initSweepMetrics()
	sweepCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		sweepCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	pruner := fmt.Sprintf("%T", s.pruner)
	sweepCtx, span := otel.Tracer("skillrt/runtime").Start(sweepCtx, "runtime.audit.sweep",
		trace.WithAttributes(
			attribute.String("pruner", pruner),
			attribute.String("retention", s.retention.String()),
		),
	)
	defer span.End()

	cutoff := s.now().Add(-s.retention)
	start := time.Now()
	removed, err := s.pruner.Prune(sweepCtx, cutoff)
	durationMs := float64(time.Since(start).Microseconds()) / 1000
	attrs := metric.WithAttributes(attribute.String("pruner", pruner))
	sweepCounter.Add(ctx, 1, attrs)
	sweepLatencyMs.Record(ctx, durationMs, attrs)
	if err != nil {
		sweepErrorCounter.Add(ctx, 1, attrs)
		span.RecordError(err)
		s.logger.WarnContext(sweepCtx, "runtime.audit.sweep.error",
			slog.String("pruner", pruner),
			slog.Float64("duration_ms", durationMs),
			slog.String("error", err.Error()),
		)
		return 0
	}
	if removed > 0 {
		prunedCounter.Add(ctx, int64(removed), attrs)
	}
	span.SetAttributes(attribute.Int("pruned", removed))
	s.logger.InfoContext(sweepCtx, "runtime.audit.sweep.complete",
		slog.String("pruner", pruner),
		slog.Int("pruned", removed),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", durationMs),
	)
	return removed
}

var (
	sweepMetricsOnce  sync.Once
	sweepCounter      metric.Int64Counter
	sweepErrorCounter metric.Int64Counter
	prunedCounter     metric.Int64Counter
	sweepLatencyMs    metric.Float64Histogram
)

func initSweepMetrics() {
	sweepMetricsOnce.Do(func() {
		meter := otel.Meter("skillrt/runtime")
		sweepCounter, _ = meter.Int64Counter("skillrt.audit.sweep.count")
		sweepErrorCounter, _ = meter.Int64Counter("skillrt.audit.sweep.error.count")
		prunedCounter, _ = meter.Int64Counter("skillrt.audit.pruned.count")
		sweepLatencyMs, _ = meter.Float64Histogram("skillrt.audit.sweep.latency_ms")
	})
}
