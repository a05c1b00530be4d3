package models

import "time"

// StreamStatus is the lifecycle state of a collection stream.
type StreamStatus string

const (
	StreamActive  StreamStatus = "active"
	StreamStopped StreamStatus = "stopped"
	StreamFailed  StreamStatus = "failed"
)

// CollectionStream describes one container's metrics collection loop.
// Active streams are removed on stop; failed streams stay visible with
// their last error until a fresh start replaces them.
type CollectionStream struct {
	ResourceID string        `json:"resource_id"`
	Interval   time.Duration `json:"-"`
	StartedAt  time.Time     `json:"started_at"`
	Status     StreamStatus  `json:"status"`
	LastError  string        `json:"last_error,omitempty"`
}

// IntervalSeconds is what the API reports for the polling cadence.
func (s CollectionStream) IntervalSeconds() float64 {
	return s.Interval.Seconds()
}
