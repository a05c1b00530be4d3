package notify

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dockmon/internal/alerts"
	"dockmon/internal/config"
	"dockmon/internal/models"
	"dockmon/internal/store"
	"dockmon/internal/utils"
)

func setupService(t *testing.T) (*Service, *store.AlertStore, *store.UserStore) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := utils.NewLogger("")
	alertStore := store.NewAlertStore(db)
	users := store.NewUserStore(db)
	hub := NewHub(log)
	t.Cleanup(hub.Shutdown)
	svc := NewService(hub, NewPersistence(NewMemoryListStore(), log),
		NewMailer(config.Config{}), alertStore, users, log)
	return svc, alertStore, users
}

func seedAlert(t *testing.T, alertStore *store.AlertStore, users *store.UserStore, username string) models.Alert {
	t.Helper()
	u, err := users.Create(context.Background(), username, "", "x")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	a, err := alertStore.Create(context.Background(), models.Alert{
		OwnerUserID: u.ID,
		ResourceID:  "web1",
		MetricType:  models.MetricCPUPercent,
		Operator:    models.OpGreater,
		Threshold:   80,
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}
	return a
}

func TestAlertFiredBuffersWithoutConnections(t *testing.T) {
	svc, alertStore, users := setupService(t)
	ctx := context.Background()
	a := seedAlert(t, alertStore, users, "alice")

	svc.AlertFired(ctx, alerts.Firing{
		Alert:    a,
		Value:    92.5,
		Severity: models.SeverityWarning,
		At:       time.Now().UTC(),
	})

	got, err := svc.History(ctx, a.OwnerUserID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("history length = %d, want 1", len(got))
	}
	n := got[0]
	if n.Type != models.WSAlertTriggered || n.Severity != models.SeverityWarning {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if n.Alert == nil || n.Alert.AlertID != a.ID || n.Alert.Value != 92.5 {
		t.Fatalf("unexpected alert payload: %+v", n.Alert)
	}
}

func TestAcknowledgeNotifiesOwner(t *testing.T) {
	svc, alertStore, users := setupService(t)
	ctx := context.Background()
	a := seedAlert(t, alertStore, users, "alice")
	bob, err := users.Create(ctx, "bob", "", "x")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	// Anyone may acknowledge; the owner gets the notification.
	if err := svc.Acknowledge(ctx, a.ID, bob.ID); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	updated, err := alertStore.Get(ctx, a.ID, a.OwnerUserID)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if updated.AcknowledgedBy == nil || *updated.AcknowledgedBy != bob.ID {
		t.Fatalf("acknowledged_by = %v, want %d", updated.AcknowledgedBy, bob.ID)
	}
	if updated.AcknowledgedAt == nil {
		t.Fatal("acknowledged_at not set")
	}

	got, err := svc.History(ctx, a.OwnerUserID, 10)
	if err != nil {
		t.Fatalf("owner history: %v", err)
	}
	if len(got) != 1 || got[0].Type != models.WSAlertAcknowledged {
		t.Fatalf("owner history = %+v, want one acknowledgment", got)
	}
	if got[0].Ack == nil || got[0].Ack.AcknowledgedBy != bob.ID {
		t.Fatalf("unexpected ack payload: %+v", got[0].Ack)
	}

	// The acknowledger's own buffer stays empty.
	got, err = svc.History(ctx, bob.ID, 10)
	if err != nil {
		t.Fatalf("bob history: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("bob history length = %d, want 0", len(got))
	}
}

func TestAcknowledgeUnknownAlert(t *testing.T) {
	svc, _, users := setupService(t)
	ctx := context.Background()
	u, err := users.Create(ctx, "alice", "", "x")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := svc.Acknowledge(ctx, 12345, u.ID); !errors.Is(err, store.ErrNotFoundOrForbidden) {
		t.Fatalf("err = %v, want ErrNotFoundOrForbidden", err)
	}
}
