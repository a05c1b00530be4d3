package models

import "time"

// WebSocket message type discriminators. Server to client first, then the
// messages a client may send.
const (
	WSConnectionEstablished = "connection_established"
	WSPendingNotification   = "pending_notification"
	WSAlertTriggered        = "alert_triggered"
	WSAlertAcknowledged     = "alert_acknowledged"
	WSNotificationHistory   = "notification_history"
	WSPong                  = "pong"
	WSError                 = "error"

	WSPing             = "ping"
	WSAcknowledgeAlert = "acknowledge_alert"
	WSGetHistory       = "get_notification_history"
)

// Notification is the tagged union pushed to subscribers and buffered for
// offline replay. Type selects which payload pointer is set: Alert for
// alert_triggered, Ack for alert_acknowledged.
type Notification struct {
	Type      string         `json:"type"`
	Severity  Severity       `json:"severity,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Alert     *AlertEvent    `json:"alert,omitempty"`
	Ack       *AckEvent      `json:"ack,omitempty"`
}

// AlertEvent carries the firing-alert payload of a notification.
type AlertEvent struct {
	AlertID    int64   `json:"alert_id"`
	ResourceID string  `json:"resource_id"`
	MetricType string  `json:"metric_type"`
	Value      float64 `json:"value"`
	Threshold  float64 `json:"threshold_value"`
	Operator   string  `json:"comparison_operator"`
}

// AckEvent carries the acknowledgment payload of a notification.
type AckEvent struct {
	AlertID        int64     `json:"alert_id"`
	AcknowledgedBy int64     `json:"acknowledged_by"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}
