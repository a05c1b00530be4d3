package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dockmon/internal/models"
)

// ErrNotFoundOrForbidden covers both a missing alert and an alert owned by
// someone else. The two cases are deliberately indistinguishable so the
// API never leaks whether an id exists.
var ErrNotFoundOrForbidden = errors.New("alert not found")

// AlertStore persists user alert rules.
type AlertStore struct {
	db *sql.DB
}

func NewAlertStore(db *sql.DB) *AlertStore {
	return &AlertStore{db: db}
}

const alertColumns = `id, owner_user_id, resource_id, metric_type, threshold_value,
	comparison_operator, is_active, is_acknowledged, trigger_count,
	last_triggered_at, acknowledged_by, acknowledged_at, created_at`

func scanAlert(row interface{ Scan(...any) error }) (models.Alert, error) {
	var a models.Alert
	err := row.Scan(&a.ID, &a.OwnerUserID, &a.ResourceID, &a.MetricType, &a.Threshold,
		&a.Operator, &a.IsActive, &a.IsAcknowledged, &a.TriggerCount,
		&a.LastTriggeredAt, &a.AcknowledgedBy, &a.AcknowledgedAt, &a.CreatedAt)
	return a, err
}

// Create inserts a new alert and returns it with its assigned id.
func (s *AlertStore) Create(ctx context.Context, a models.Alert) (models.Alert, error) {
	a.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts
			(owner_user_id, resource_id, metric_type, threshold_value, comparison_operator,
			 is_active, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		a.OwnerUserID, a.ResourceID, a.MetricType, a.Threshold, a.Operator, a.IsActive, a.CreatedAt)
	if err != nil {
		return models.Alert{}, err
	}
	a.ID, err = res.LastInsertId()
	return a, err
}

// Get returns one alert when it exists and belongs to the caller.
func (s *AlertStore) Get(ctx context.Context, id, callerUserID int64) (models.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = ? AND owner_user_id = ?`,
		id, callerUserID)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, ErrNotFoundOrForbidden
	}
	return a, err
}

// ByID returns one alert regardless of ownership. Used by the acknowledge
// flow, which any authenticated user may perform.
func (s *AlertStore) ByID(ctx context.Context, id int64) (models.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, ErrNotFoundOrForbidden
	}
	return a, err
}

// ListByOwner returns the caller's alerts, newest first.
func (s *AlertStore) ListByOwner(ctx context.Context, ownerUserID int64) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE owner_user_id = ? ORDER BY id DESC`,
		ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update rewrites the rule fields of an alert the caller owns. The
// ownership check lives in the WHERE clause so a non-owner update is
// indistinguishable from a missing alert.
func (s *AlertStore) Update(ctx context.Context, a models.Alert, callerUserID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts
		 SET resource_id = ?, metric_type = ?, threshold_value = ?,
			 comparison_operator = ?, is_active = ?
		 WHERE id = ? AND owner_user_id = ?`,
		a.ResourceID, a.MetricType, a.Threshold, a.Operator, a.IsActive,
		a.ID, callerUserID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes an alert the caller owns.
func (s *AlertStore) Delete(ctx context.Context, id, callerUserID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE id = ? AND owner_user_id = ?`, id, callerUserID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ActiveForResource returns all active alerts watching one container.
func (s *AlertStore) ActiveForResource(ctx context.Context, resourceID string) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE resource_id = ? AND is_active = 1`,
		resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecordTrigger bumps the trigger counter and timestamp for a firing alert.
func (s *AlertStore) RecordTrigger(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET trigger_count = trigger_count + 1, last_triggered_at = ? WHERE id = ?`,
		at.UTC(), id)
	return err
}

// Acknowledge marks an alert acknowledged and returns the updated row.
// Any authenticated user may acknowledge; the owner is notified separately.
func (s *AlertStore) Acknowledge(ctx context.Context, id, byUserID int64, at time.Time) (models.Alert, error) {
	at = at.UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET is_acknowledged = 1, acknowledged_by = ?, acknowledged_at = ? WHERE id = ?`,
		byUserID, at, id)
	if err != nil {
		return models.Alert{}, err
	}
	if err := requireRow(res); err != nil {
		return models.Alert{}, err
	}
	return s.ByID(ctx, id)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFoundOrForbidden
	}
	return nil
}
