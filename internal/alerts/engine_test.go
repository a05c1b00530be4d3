package alerts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dockmon/internal/models"
	"dockmon/internal/store"
	"dockmon/internal/utils"
)

func setupEngine(t *testing.T) (*Engine, *store.AlertStore, *store.UserStore) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	alertStore := store.NewAlertStore(db)
	return NewEngine(alertStore, utils.NewLogger("")), alertStore, store.NewUserStore(db)
}

func mustUser(t *testing.T, users *store.UserStore, name string) models.User {
	t.Helper()
	u, err := users.Create(context.Background(), name, "", "x")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func mustAlert(t *testing.T, e *Engine, owner int64, metric, op string, threshold float64) models.Alert {
	t.Helper()
	a, err := e.Create(context.Background(), models.Alert{
		OwnerUserID: owner,
		ResourceID:  "web1",
		MetricType:  metric,
		Operator:    op,
		Threshold:   threshold,
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}
	return a
}

func TestSeverityLadder(t *testing.T) {
	cases := []struct {
		value float64
		want  models.Severity
	}{
		{85, models.SeverityInfo},      // ratio 0.0625
		{100, models.SeverityWarning},  // ratio 0.25
		{130, models.SeverityCritical}, // ratio 0.625
	}
	for _, tc := range cases {
		if got := severityFor(tc.value, 80, models.OpGreater); got != tc.want {
			t.Errorf("severityFor(%v, 80, >) = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestSeverityUndershoot(t *testing.T) {
	// For < the excess ratio measures how far below threshold.
	if got := severityFor(10, 40, models.OpLess); got != models.SeverityCritical {
		t.Fatalf("severityFor(10, 40, <) = %s, want critical", got)
	}
	if got := severityFor(35, 40, models.OpLess); got != models.SeverityInfo {
		t.Fatalf("severityFor(35, 40, <) = %s, want info", got)
	}
}

func TestCompareOperators(t *testing.T) {
	cases := []struct {
		v    float64
		op   string
		th   float64
		want bool
	}{
		{90, models.OpGreater, 80, true},
		{80, models.OpGreater, 80, false},
		{80, models.OpGreaterEqual, 80, true},
		{70, models.OpLess, 80, true},
		{80, models.OpLessEqual, 80, true},
		{80, models.OpEqual, 80, true},
		{81, models.OpEqual, 80, false},
		{90, "!=", 80, false}, // unsupported operator never fires
	}
	for _, tc := range cases {
		if got := compare(tc.v, tc.op, tc.th); got != tc.want {
			t.Errorf("compare(%v, %q, %v) = %v, want %v", tc.v, tc.op, tc.th, got, tc.want)
		}
	}
}

func TestEvaluateFiresAndCounts(t *testing.T) {
	e, alertStore, users := setupEngine(t)
	ctx := context.Background()
	owner := mustUser(t, users, "alice")
	a := mustAlert(t, e, owner.ID, models.MetricCPUPercent, models.OpGreater, 80)

	sample := models.MetricSample{ResourceID: "web1", CPUPercent: 92}
	fired, err := e.Evaluate(ctx, sample)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(fired) != 1 {
		t.Fatalf("fired = %d, want 1", len(fired))
	}
	if fired[0].Severity != models.SeverityInfo {
		t.Fatalf("severity = %s, want info (ratio 0.15)", fired[0].Severity)
	}
	if fired[0].Value != 92 {
		t.Fatalf("value = %v, want 92", fired[0].Value)
	}

	// Level-triggered: the alert re-fires while the condition holds.
	if _, err := e.Evaluate(ctx, sample); err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	got, err := alertStore.Get(ctx, a.ID, owner.ID)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if got.TriggerCount != 2 {
		t.Fatalf("trigger count = %d, want 2", got.TriggerCount)
	}
	if got.LastTriggeredAt == nil {
		t.Fatal("last triggered at not set")
	}
}

func TestEvaluateSkipsNonMatching(t *testing.T) {
	e, _, users := setupEngine(t)
	ctx := context.Background()
	owner := mustUser(t, users, "alice")
	mustAlert(t, e, owner.ID, models.MetricCPUPercent, models.OpGreater, 80)

	// Condition does not hold.
	fired, err := e.Evaluate(ctx, models.MetricSample{ResourceID: "web1", CPUPercent: 40})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(fired) != 0 {
		t.Fatalf("fired = %d, want 0", len(fired))
	}

	// Different container.
	fired, err = e.Evaluate(ctx, models.MetricSample{ResourceID: "db1", CPUPercent: 99})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(fired) != 0 {
		t.Fatalf("fired for wrong container = %d, want 0", len(fired))
	}
}

func TestInactiveAlertNeverFires(t *testing.T) {
	e, _, users := setupEngine(t)
	ctx := context.Background()
	owner := mustUser(t, users, "alice")
	a := mustAlert(t, e, owner.ID, models.MetricCPUPercent, models.OpGreater, 80)

	a.IsActive = false
	if err := e.Update(ctx, a, owner.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	fired, err := e.Evaluate(ctx, models.MetricSample{ResourceID: "web1", CPUPercent: 99})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(fired) != 0 {
		t.Fatalf("fired = %d, want 0 for inactive alert", len(fired))
	}
}

func TestOwnershipScoping(t *testing.T) {
	e, _, users := setupEngine(t)
	ctx := context.Background()
	alice := mustUser(t, users, "alice")
	bob := mustUser(t, users, "bob")
	a := mustAlert(t, e, alice.ID, models.MetricCPUPercent, models.OpGreater, 80)

	if _, err := e.Get(ctx, a.ID, bob.ID); !errors.Is(err, store.ErrNotFoundOrForbidden) {
		t.Fatalf("foreign get err = %v, want ErrNotFoundOrForbidden", err)
	}
	if err := e.Update(ctx, a, bob.ID); !errors.Is(err, store.ErrNotFoundOrForbidden) {
		t.Fatalf("foreign update err = %v, want ErrNotFoundOrForbidden", err)
	}
	if err := e.Delete(ctx, a.ID, bob.ID); !errors.Is(err, store.ErrNotFoundOrForbidden) {
		t.Fatalf("foreign delete err = %v, want ErrNotFoundOrForbidden", err)
	}
	// A missing alert looks exactly the same.
	if _, err := e.Get(ctx, 9999, alice.ID); !errors.Is(err, store.ErrNotFoundOrForbidden) {
		t.Fatalf("missing get err = %v, want ErrNotFoundOrForbidden", err)
	}
	// The owner still can.
	if err := e.Delete(ctx, a.ID, alice.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestCreateRejectsBadRules(t *testing.T) {
	e, _, users := setupEngine(t)
	ctx := context.Background()
	owner := mustUser(t, users, "alice")

	bad := []models.Alert{
		{OwnerUserID: owner.ID, ResourceID: "web1", MetricType: "bogus", Operator: models.OpGreater},
		{OwnerUserID: owner.ID, ResourceID: "web1", MetricType: models.MetricCPUPercent, Operator: "~="},
		{OwnerUserID: owner.ID, MetricType: models.MetricCPUPercent, Operator: models.OpGreater},
	}
	for i, a := range bad {
		if _, err := e.Create(ctx, a); err == nil {
			t.Errorf("case %d: bad rule accepted", i)
		}
	}
}
