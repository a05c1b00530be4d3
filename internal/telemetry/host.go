package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"dockmon/internal/models"
)

// Host samples host-level resource usage for the dashboard. CPU percent
// is computed from the delta between successive snapshots, so the first
// call reports zero CPU.
type Host struct {
	mu        sync.Mutex
	prevTotal float64
	prevIdle  float64
	hasPrev   bool
	diskPath  string
}

func NewHost(diskPath string) *Host {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Host{diskPath: diskPath}
}

// Snapshot returns the current host telemetry. Individual probe failures
// leave their fields zeroed rather than failing the whole snapshot.
func (h *Host) Snapshot(ctx context.Context) models.SystemTelemetry {
	out := models.SystemTelemetry{SampledAt: time.Now().UTC()}

	if timesStats, err := cpu.TimesWithContext(ctx, false); err == nil && len(timesStats) > 0 {
		t := timesStats[0]
		total := t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
		idle := t.Idle + t.Iowait
		h.mu.Lock()
		if h.hasPrev {
			deltaTotal := total - h.prevTotal
			deltaIdle := idle - h.prevIdle
			if deltaTotal > 0 {
				used := deltaTotal - deltaIdle
				if used < 0 {
					used = 0
				}
				out.CPUPercent = clamp(used/deltaTotal*100, 0, 100)
			}
		}
		h.prevTotal, h.prevIdle, h.hasPrev = total, idle, true
		h.mu.Unlock()
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		out.MemoryPercent = clamp(vm.UsedPercent, 0, 100)
		out.MemoryUsed = vm.Used
		out.MemoryTotal = vm.Total
	}

	if du, err := disk.UsageWithContext(ctx, h.diskPath); err == nil && du != nil {
		out.DiskPercent = clamp(du.UsedPercent, 0, 100)
		out.DiskUsed = du.Used
		out.DiskTotal = du.Total
	}

	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
