package alerts

import (
	"context"
	"fmt"
	"math"
	"time"

	"dockmon/internal/models"
	"dockmon/internal/store"
	"dockmon/internal/utils"
)

// Firing describes one alert whose comparison held against a sample.
type Firing struct {
	Alert    models.Alert
	Value    float64
	Severity models.Severity
	At       time.Time
}

// Engine owns alert rule CRUD and per-sample threshold evaluation.
// Evaluation is level-triggered: an alert re-fires on every cycle while
// its condition holds.
type Engine struct {
	alerts *store.AlertStore
	log    *utils.Logger
	now    func() time.Time
}

func NewEngine(alerts *store.AlertStore, logger *utils.Logger) *Engine {
	return &Engine{alerts: alerts, log: logger, now: time.Now}
}

// Create validates and stores a new alert owned by the caller.
func (e *Engine) Create(ctx context.Context, a models.Alert) (models.Alert, error) {
	if err := validateRule(a); err != nil {
		return models.Alert{}, err
	}
	return e.alerts.Create(ctx, a)
}

// List returns the caller's alerts.
func (e *Engine) List(ctx context.Context, callerUserID int64) ([]models.Alert, error) {
	return e.alerts.ListByOwner(ctx, callerUserID)
}

// Get returns one alert the caller owns.
func (e *Engine) Get(ctx context.Context, id, callerUserID int64) (models.Alert, error) {
	return e.alerts.Get(ctx, id, callerUserID)
}

// Update rewrites the rule fields of an alert the caller owns.
func (e *Engine) Update(ctx context.Context, a models.Alert, callerUserID int64) error {
	if err := validateRule(a); err != nil {
		return err
	}
	return e.alerts.Update(ctx, a, callerUserID)
}

// Delete removes an alert the caller owns.
func (e *Engine) Delete(ctx context.Context, id, callerUserID int64) error {
	return e.alerts.Delete(ctx, id, callerUserID)
}

// Evaluate compares a sample against every active alert watching its
// container and returns the firing set. Trigger bookkeeping is committed
// before the firing is reported.
func (e *Engine) Evaluate(ctx context.Context, sample models.MetricSample) ([]Firing, error) {
	rules, err := e.alerts.ActiveForResource(ctx, sample.ResourceID)
	if err != nil {
		return nil, err
	}
	var fired []Firing
	for _, a := range rules {
		value, ok := sample.Value(a.MetricType)
		if !ok {
			continue
		}
		if !compare(value, a.Operator, a.Threshold) {
			continue
		}
		at := e.now().UTC()
		if err := e.alerts.RecordTrigger(ctx, a.ID, at); err != nil {
			e.log.Writef("Alert %d: record trigger failed: %v", a.ID, err)
		} else {
			a.TriggerCount++
			a.LastTriggeredAt = &at
		}
		fired = append(fired, Firing{
			Alert:    a,
			Value:    value,
			Severity: severityFor(value, a.Threshold, a.Operator),
			At:       at,
		})
	}
	return fired, nil
}

func validateRule(a models.Alert) error {
	if !models.ValidMetricType(a.MetricType) {
		return fmt.Errorf("unknown metric type %q", a.MetricType)
	}
	if !models.ValidOperator(a.Operator) {
		return fmt.Errorf("unknown comparison operator %q", a.Operator)
	}
	if a.ResourceID == "" {
		return fmt.Errorf("resource id required")
	}
	return nil
}

func compare(v float64, op string, threshold float64) bool {
	switch op {
	case models.OpGreater:
		return v > threshold
	case models.OpGreaterEqual:
		return v >= threshold
	case models.OpLess:
		return v < threshold
	case models.OpLessEqual:
		return v <= threshold
	case models.OpEqual:
		return v == threshold
	default:
		return false
	}
}

// severityFor grades a firing by how far the value overshoots the
// threshold, relative to the threshold itself.
func severityFor(value, threshold float64, op string) models.Severity {
	if threshold == 0 {
		return models.SeverityCritical
	}
	var ratio float64
	switch op {
	case models.OpGreater, models.OpGreaterEqual:
		ratio = (value - threshold) / threshold
	case models.OpLess, models.OpLessEqual:
		ratio = (threshold - value) / threshold
	default:
		ratio = math.Abs(value-threshold) / threshold
	}
	switch {
	case ratio > 0.5:
		return models.SeverityCritical
	case ratio > 0.2:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}
