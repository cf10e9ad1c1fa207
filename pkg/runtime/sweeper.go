package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/classkit/minion/pkg/audit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// SetRetention defines how long audit events are kept. Set to 0 to
// keep everything.
func (r *LocalRuntime) SetRetention(age time.Duration) {
	r.retention = age
}

// SetPruneInterval defines how often old audit events are swept. Set
// to 0 to disable.
func (r *LocalRuntime) SetPruneInterval(interval time.Duration) {
	r.pruneInterval = interval
}

// SetPruneTimeout defines a per-sweep timeout.
func (r *LocalRuntime) SetPruneTimeout(timeout time.Duration) {
	r.pruneTimeout = timeout
}

func (r *LocalRuntime) startPruneSweeper() {
	pruner, prunable := r.store.(audit.Pruner)
	if r.pruneInterval <= 0 || r.retention <= 0 || !prunable {
		slog.Default().Info("runtime.audit.sweeper.disabled",
			slog.Duration("interval", r.pruneInterval),
			slog.Duration("retention", r.retention),
			slog.Bool("prunable", prunable),
		)
		return
	}
	if r.pruneCancel != nil {
		r.stopPruneSweeper()
	}
	initSweepMetrics()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.pruneCancel = cancel
	r.pruneDone = done
	go func() {
		defer close(done)
		ticker := time.NewTicker(r.pruneInterval)
		defer ticker.Stop()
		log := slog.Default()
		log.Info("runtime.audit.sweeper.start",
			slog.Duration("interval", r.pruneInterval),
			slog.Duration("retention", r.retention),
		)
		for {
			select {
			case <-ctx.Done():
				log.Info("runtime.audit.sweeper.stop")
				return
			case <-ticker.C:
				r.sweepAudit(ctx, pruner)
			}
		}
	}()
}

func (r *LocalRuntime) sweepAudit(ctx context.Context, pruner audit.Pruner) {
	sweepCtx := ctx
	var cancel context.CancelFunc
	if r.pruneTimeout > 0 {
		sweepCtx, cancel = context.WithTimeout(ctx, r.pruneTimeout)
		defer cancel()
	}
	sweepCtx, span := otel.Tracer("minion/runtime").Start(sweepCtx, "runtime.audit.sweep",
		trace.WithAttributes(
			attribute.String("retention", r.retention.String()),
			attribute.String("timeout", r.pruneTimeout.String()),
		),
	)
	defer span.End()
	traceID, spanID := traceIDs(span)

	start := time.Now()
	pruned, err := pruner.PruneBefore(sweepCtx, time.Now().Add(-r.retention))
	durationMs := float64(time.Since(start).Seconds() * 1000)
	sweepCounter.Add(ctx, 1)
	sweepLatencyMs.Record(ctx, durationMs)

	log := slog.Default()
	if err != nil {
		sweepErrorCounter.Add(ctx, 1)
		span.RecordError(err)
		log.Warn("runtime.audit.sweep.error",
			slog.Float64("duration_ms", durationMs),
			slog.String("trace_id", traceID),
			slog.String("span_id", spanID),
			slog.String("error", err.Error()),
		)
		return
	}
	if pruned > 0 {
		prunedCounter.Add(ctx, int64(pruned))
	}
	span.SetAttributes(
		attribute.Int("pruned", pruned),
		attribute.Float64("duration_ms", durationMs),
	)
	log.Info("runtime.audit.sweep.complete",
		slog.Int("pruned", pruned),
		slog.Float64("duration_ms", durationMs),
		slog.String("trace_id", traceID),
		slog.String("span_id", spanID),
	)
}

func (r *LocalRuntime) stopPruneSweeper() {
	if r.pruneCancel == nil {
		return
	}
	r.pruneCancel()
	if r.pruneDone != nil {
		<-r.pruneDone
	}
	r.pruneCancel = nil
	r.pruneDone = nil
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
		meter := otel.Meter("minion/runtime")
		sweepCounter, _ = meter.Int64Counter("minion.runtime.audit.sweep.count")
		sweepErrorCounter, _ = meter.Int64Counter("minion.runtime.audit.sweep.error.count")
		prunedCounter, _ = meter.Int64Counter("minion.runtime.audit.pruned.count")
		sweepLatencyMs, _ = meter.Float64Histogram("minion.runtime.audit.sweep.latency_ms")
	})
}
