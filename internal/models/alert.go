package models

import "time"

// Comparison operators supported by alert rules.
const (
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpEqual        = "=="
)

// ValidOperator reports whether op is a supported comparison operator.
func ValidOperator(op string) bool {
	switch op {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual:
		return true
	}
	return false
}

// Alert is a user-defined single-metric threshold rule on one container.
type Alert struct {
	ID              int64      `json:"id"`
	OwnerUserID     int64      `json:"owner_user_id"`
	ResourceID      string     `json:"resource_id"`
	MetricType      string     `json:"metric_type"`
	Threshold       float64    `json:"threshold_value"`
	Operator        string     `json:"comparison_operator"`
	IsActive        bool       `json:"is_active"`
	IsAcknowledged  bool       `json:"is_acknowledged"`
	TriggerCount    int64      `json:"trigger_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	AcknowledgedBy  *int64     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Severity classifies how far past its threshold a firing alert is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)
