package docker

import (
	"context"
	"time"

	"dockmon/internal/models"
)

// Stats fetches one stats document and normalizes it into a MetricSample.
// This is the poll step of the collection loop; a wrapped
// ErrContainerNotFound means the target is gone and the stream should
// fail terminally.
func (c *Client) Stats(ctx context.Context, resourceID string) (models.MetricSample, error) {
	raw, err := c.stats(ctx, resourceID)
	if err != nil {
		return models.MetricSample{}, err
	}
	return normalize(resourceID, raw, time.Now().UTC()), nil
}

// normalize converts the engine's raw counters into a point-in-time
// sample. CPU percent uses the engine's delta counters against the system
// CPU delta, scaled by the online CPU count.
func normalize(id string, s rawStats, at time.Time) models.MetricSample {
	var cpuPct float64
	sysDelta := float64(s.CPUStats.SystemCPUUsage) - float64(s.PreCPUStats.SystemCPUUsage)
	cpuDelta := float64(s.CPUStats.CPUUsage.TotalUsage) - float64(s.PreCPUStats.CPUUsage.TotalUsage)
	cpus := float64(s.CPUStats.OnlineCPUs)
	if cpus == 0 {
		cpus = float64(len(s.CPUStats.CPUUsage.PercpuUsage))
		if cpus == 0 {
			cpus = 1
		}
	}
	if sysDelta > 0 && cpuDelta >= 0 {
		cpuPct = (cpuDelta / sysDelta) * cpus * 100
	}

	var memPct float64
	if s.MemoryStats.Limit > 0 {
		memPct = float64(s.MemoryStats.Usage) / float64(s.MemoryStats.Limit) * 100
	}

	var rx, tx, blkRead, blkWrite uint64
	for _, n := range s.Networks {
		rx += n.RxBytes
		tx += n.TxBytes
	}
	for _, op := range s.BlkioStats.IoServiceBytesRecursive {
		switch op.Op {
		case "Read", "read":
			blkRead += op.Value
		case "Write", "write":
			blkWrite += op.Value
		}
	}

	return models.MetricSample{
		ResourceID:    id,
		Timestamp:     at,
		CPUPercent:    cpuPct,
		MemoryUsage:   s.MemoryStats.Usage,
		MemoryLimit:   s.MemoryStats.Limit,
		MemoryPercent: memPct,
		NetRxBytes:    rx,
		NetTxBytes:    tx,
		BlockRead:     blkRead,
		BlockWrite:    blkWrite,
	}
}
