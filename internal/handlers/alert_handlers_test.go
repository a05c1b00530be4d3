package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"dockmon/internal/models"
)

func createAlert(t *testing.T, app *testApp, token string) models.Alert {
	t.Helper()
	w := app.request(t, http.MethodPost, "/api/alerts", token, map[string]any{
		"resource_id":         "web1",
		"metric_type":         models.MetricCPUPercent,
		"threshold_value":     80.0,
		"comparison_operator": models.OpGreater,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var a models.Alert
	decodeJSON(t, w, &a)
	if a.ID == 0 {
		t.Fatal("created alert has no id")
	}
	return a
}

func TestAlertCRUD(t *testing.T) {
	app := newTestApp(t)
	userID, token := app.login(t, "alice")

	a := createAlert(t, app, token)
	if a.OwnerUserID != userID || !a.IsActive {
		t.Fatalf("unexpected alert: %+v", a)
	}

	// List includes it.
	w := app.request(t, http.MethodGet, "/api/alerts", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Alerts []models.Alert `json:"alerts"`
		Count  int            `json:"count"`
	}
	decodeJSON(t, w, &list)
	if list.Count != 1 || list.Alerts[0].ID != a.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	// Update the threshold and deactivate.
	w = app.request(t, http.MethodPut, fmt.Sprintf("/api/alerts/%d", a.ID), token, map[string]any{
		"resource_id":         "web1",
		"metric_type":         models.MetricMemoryPercent,
		"threshold_value":     90.0,
		"comparison_operator": models.OpGreaterEqual,
		"is_active":           false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}
	w = app.request(t, http.MethodGet, fmt.Sprintf("/api/alerts/%d", a.ID), token, nil)
	var got models.Alert
	decodeJSON(t, w, &got)
	if got.MetricType != models.MetricMemoryPercent || got.Threshold != 90 || got.IsActive {
		t.Fatalf("update not applied: %+v", got)
	}

	// Delete, then the alert is gone.
	w = app.request(t, http.MethodDelete, fmt.Sprintf("/api/alerts/%d", a.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = app.request(t, http.MethodGet, fmt.Sprintf("/api/alerts/%d", a.ID), token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", w.Code)
	}
}

func TestAlertCreateValidation(t *testing.T) {
	app := newTestApp(t)
	_, token := app.login(t, "alice")

	bad := []map[string]any{
		{"metric_type": models.MetricCPUPercent, "comparison_operator": ">"},
		{"resource_id": "web1", "metric_type": "bogus", "comparison_operator": ">"},
		{"resource_id": "web1", "metric_type": models.MetricCPUPercent, "comparison_operator": "~="},
	}
	for i, body := range bad {
		w := app.request(t, http.MethodPost, "/api/alerts", token, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400 (body %s)", i, w.Code, w.Body.String())
		}
	}
}

func TestForeignAlertLooksMissing(t *testing.T) {
	app := newTestApp(t)
	_, aliceToken := app.login(t, "alice")
	_, bobToken := app.login(t, "bob")

	a := createAlert(t, app, aliceToken)

	path := fmt.Sprintf("/api/alerts/%d", a.ID)
	for _, tc := range []struct {
		method string
		body   any
	}{
		{http.MethodGet, nil},
		{http.MethodDelete, nil},
	} {
		w := app.request(t, tc.method, path, bobToken, tc.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s as non-owner: status = %d, want 404", tc.method, w.Code)
		}
	}

	// Same response shape for an id that does not exist at all.
	w := app.request(t, http.MethodGet, "/api/alerts/99999", aliceToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing alert status = %d, want 404", w.Code)
	}
}

func TestAcknowledgeByNonOwner(t *testing.T) {
	app := newTestApp(t)
	_, aliceToken := app.login(t, "alice")
	bobID, bobToken := app.login(t, "bob")

	a := createAlert(t, app, aliceToken)

	w := app.request(t, http.MethodPost, fmt.Sprintf("/api/alerts/%d/acknowledge", a.ID), bobToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("acknowledge status = %d, body %s", w.Code, w.Body.String())
	}

	// The owner sees the acknowledgment.
	w = app.request(t, http.MethodGet, fmt.Sprintf("/api/alerts/%d", a.ID), aliceToken, nil)
	var got models.Alert
	decodeJSON(t, w, &got)
	if !got.IsAcknowledged || got.AcknowledgedBy == nil || *got.AcknowledgedBy != bobID {
		t.Fatalf("acknowledgment not recorded: %+v", got)
	}
}

func TestAcknowledgeUnknownAlertIs404(t *testing.T) {
	app := newTestApp(t)
	_, token := app.login(t, "alice")

	w := app.request(t, http.MethodPost, "/api/alerts/99999/acknowledge", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	w = app.request(t, http.MethodPost, "/api/alerts/abc/acknowledge", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("non-numeric id status = %d, want 404", w.Code)
	}
}
