package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemSnapshot is a point-in-time view of host resource usage, attached to
// performance reports so drop rates can be read against system load.
type SystemSnapshot struct {
	CPUPercent        float64   `json:"cpu_percent"`
	MemoryUsedPercent float64   `json:"memory_used_percent"`
	MemoryUsedBytes   uint64    `json:"memory_used_bytes"`
	Goroutines        int       `json:"goroutines"`
	Timestamp         time.Time `json:"timestamp"`
}

// CollectSystemSnapshot samples CPU and memory usage. CPU sampling is
// instantaneous (no blocking interval).
func CollectSystemSnapshot(ctx context.Context) (SystemSnapshot, error) {
	snapshot := SystemSnapshot{
		Goroutines: runtime.NumGoroutine(),
		Timestamp:  time.Now(),
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return snapshot, err
	}
	snapshot.MemoryUsedPercent = vm.UsedPercent
	snapshot.MemoryUsedBytes = vm.Used
	return snapshot, nil
}
