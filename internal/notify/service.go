package notify

import (
	"context"
	"fmt"
	"time"

	"dockmon/internal/alerts"
	"dockmon/internal/models"
	"dockmon/internal/store"
	"dockmon/internal/utils"
)

const emailTimeout = 15 * time.Second

// Service coordinates a firing alert into its side effects: live
// fan-out, durable buffering and optional email. The three legs are
// independent and best-effort; no leg blocks or rolls back another.
type Service struct {
	hub     *Hub
	history *Persistence
	mailer  *Mailer
	alerts  *store.AlertStore
	users   *store.UserStore
	log     *utils.Logger
	now     func() time.Time
}

func NewService(hub *Hub, history *Persistence, mailer *Mailer,
	alertStore *store.AlertStore, users *store.UserStore, logger *utils.Logger) *Service {
	return &Service{
		hub:     hub,
		history: history,
		mailer:  mailer,
		alerts:  alertStore,
		users:   users,
		log:     logger,
		now:     time.Now,
	}
}

// AlertFired handles one firing alert from the engine.
func (s *Service) AlertFired(ctx context.Context, f alerts.Firing) {
	n := models.Notification{
		Type:      models.WSAlertTriggered,
		Severity:  f.Severity,
		Timestamp: f.At,
		Alert: &models.AlertEvent{
			AlertID:    f.Alert.ID,
			ResourceID: f.Alert.ResourceID,
			MetricType: f.Alert.MetricType,
			Value:      f.Value,
			Threshold:  f.Alert.Threshold,
			Operator:   f.Alert.Operator,
		},
	}
	owner := f.Alert.OwnerUserID

	s.hub.SendPersonal(owner, n)
	if err := s.history.Append(ctx, owner, n); err != nil {
		s.log.Writef("Alert %d: buffer notification failed: %v", f.Alert.ID, err)
	}
	if s.mailer.Enabled() {
		go s.email(owner, f)
	}
}

// Acknowledge marks the alert acknowledged by userID and notifies the
// alert's original owner, whoever acknowledged it.
func (s *Service) Acknowledge(ctx context.Context, alertID, userID int64) error {
	a, err := s.alerts.Acknowledge(ctx, alertID, userID, s.now())
	if err != nil {
		return err
	}
	ackAt := s.now().UTC()
	if a.AcknowledgedAt != nil {
		ackAt = *a.AcknowledgedAt
	}
	n := models.Notification{
		Type:      models.WSAlertAcknowledged,
		Severity:  models.SeverityInfo,
		Timestamp: ackAt,
		Ack: &models.AckEvent{
			AlertID:        a.ID,
			AcknowledgedBy: userID,
			AcknowledgedAt: ackAt,
		},
	}
	s.hub.SendPersonal(a.OwnerUserID, n)
	if err := s.history.Append(ctx, a.OwnerUserID, n); err != nil {
		s.log.Writef("Alert %d: buffer acknowledgment failed: %v", a.ID, err)
	}
	return nil
}

// History exposes the buffered notifications for the WebSocket layer.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	return s.history.History(ctx, userID, limit)
}

func (s *Service) email(owner int64, f alerts.Firing) {
	ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
	defer cancel()

	user, err := s.users.ByID(ctx, owner)
	if err != nil || user.Email == "" {
		return
	}
	subject := fmt.Sprintf("[dockmon] %s alert on %s", f.Severity, f.Alert.ResourceID)
	text := fmt.Sprintf("Alert %d fired at %s: %s %s %.2f, observed %.2f on container %s.",
		f.Alert.ID, f.At.Format(time.RFC3339), f.Alert.MetricType, f.Alert.Operator,
		f.Alert.Threshold, f.Value, f.Alert.ResourceID)
	html := fmt.Sprintf(
		"<p><strong>%s</strong> alert on container <code>%s</code></p>"+
			"<p>%s %s %.2f, observed <strong>%.2f</strong> at %s</p>",
		f.Severity, f.Alert.ResourceID, f.Alert.MetricType, f.Alert.Operator,
		f.Alert.Threshold, f.Value, f.At.Format(time.RFC3339))
	if err := s.mailer.Send(ctx, user.Email, subject, html, text); err != nil {
		s.log.Writef("Alert %d: email dispatch failed: %v", f.Alert.ID, err)
	}
}
