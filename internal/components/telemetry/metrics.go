package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("macroscrape")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")
var recordCounter, _ = meter.Int64Counter("records_collected")
var sourceFailures, _ = meter.Int64Counter("source_failures")

// RecordCollected adds `n` to the count of records collected for a source.
func RecordCollected(ctx context.Context, source string, n int) {
	recordCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}

// RecordSourceFailure counts a source that produced no data.
func RecordSourceFailure(ctx context.Context, source string) {
	sourceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// InstrumentPerfStats samples cpu, memory and goroutine counts every `interval`
// until ctx is cancelled.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, 0, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					slog.DebugContext(ctx, "failed to read cpu usage", "err", err)
				}

				memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
