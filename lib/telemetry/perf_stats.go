package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("ratewatch.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var hostMemoryGauge, _ = meter.Float64Gauge("host_memory_used_percent")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// InstrumentPerfStats records process and host gauges every interval until
// ctx is cancelled.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)
				memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))

				cpuUsage, err := cpu.PercentWithContext(ctx, time.Second, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					slog.DebugContext(ctx, "failed to read cpu usage", "err", err)
				}

				vm, err := mem.VirtualMemoryWithContext(ctx)
				if err == nil {
					hostMemoryGauge.Record(ctx, vm.UsedPercent)
				} else {
					slog.DebugContext(ctx, "failed to read host memory", "err", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
