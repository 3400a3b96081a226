package gated

import (
	"context"
	"time"

	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry/metrics"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

const cpuSampleWindow = 100 * time.Millisecond

// RecordSystemUsage samples host CPU and memory usage into the factory gauges.
// A failed sample is logged and recorded as zero.
func RecordSystemUsage(ctx context.Context, factory *metrics.MetricsFactory) {
	logger := NewLoggerFromContext(ctx)

	warn := func(msg string, err error) {
		if err != nil {
			logger.Log(ctx, log.LevelWarn, msg, log.Err(err))
		}
	}

	var cpuPercent, memPercent int64

	if samples, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false); err != nil {
		warn("sample cpu usage", err)
	} else if len(samples) > 0 {
		cpuPercent = int64(samples[0])
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		warn("sample memory usage", err)
	} else {
		memPercent = int64(vm.UsedPercent)
	}

	warn("record cpu gauge", factory.RecordSystemCPUUsage(ctx, cpuPercent))
	warn("record memory gauge", factory.RecordSystemMemUsage(ctx, memPercent))
}
