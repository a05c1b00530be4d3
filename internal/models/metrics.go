package models

import "time"

// Metric type keys accepted by alert rules and reported in samples.
const (
	MetricCPUPercent    = "cpu_percent"
	MetricMemoryPercent = "memory_percent"
	MetricMemoryUsage   = "memory_usage"
	MetricNetRx         = "net_rx"
	MetricNetTx         = "net_tx"
	MetricBlockRead     = "block_read"
	MetricBlockWrite    = "block_write"
)

// MetricSample is one immutable point-in-time reading for a container.
// Samples are created by the collection loop and only ever queried after
// that; retention is handled outside this subsystem.
type MetricSample struct {
	ResourceID    string    `json:"resource_id"`
	Timestamp     time.Time `json:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryUsage   uint64    `json:"memory_usage_bytes"`
	MemoryLimit   uint64    `json:"memory_limit_bytes"`
	MemoryPercent float64   `json:"memory_percent"`
	NetRxBytes    uint64    `json:"net_rx_bytes"`
	NetTxBytes    uint64    `json:"net_tx_bytes"`
	BlockRead     uint64    `json:"block_read_bytes"`
	BlockWrite    uint64    `json:"block_write_bytes"`
}

// Value returns the sample field addressed by a metric type key.
// The second return is false for unknown keys.
func (s MetricSample) Value(metricType string) (float64, bool) {
	switch metricType {
	case MetricCPUPercent:
		return s.CPUPercent, true
	case MetricMemoryPercent:
		return s.MemoryPercent, true
	case MetricMemoryUsage:
		return float64(s.MemoryUsage), true
	case MetricNetRx:
		return float64(s.NetRxBytes), true
	case MetricNetTx:
		return float64(s.NetTxBytes), true
	case MetricBlockRead:
		return float64(s.BlockRead), true
	case MetricBlockWrite:
		return float64(s.BlockWrite), true
	default:
		return 0, false
	}
}

// ValidMetricType reports whether the key names a sample field.
func ValidMetricType(metricType string) bool {
	_, ok := MetricSample{}.Value(metricType)
	return ok
}

// SystemTelemetry captures host-level resource usage for the dashboard.
type SystemTelemetry struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsed    uint64    `json:"memory_used_bytes"`
	MemoryTotal   uint64    `json:"memory_total_bytes"`
	DiskPercent   float64   `json:"disk_percent"`
	DiskUsed      uint64    `json:"disk_used_bytes"`
	DiskTotal     uint64    `json:"disk_total_bytes"`
	SampledAt     time.Time `json:"sampled_at"`
}
