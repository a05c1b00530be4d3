package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dockmon/internal/models"
)

func TestStreamStartStopCycle(t *testing.T) {
	app := newTestApp(t)
	_, token := app.login(t, "alice")

	w := app.request(t, http.MethodPost, "/api/streams/web1/start", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d, body %s", w.Code, w.Body.String())
	}
	var started struct {
		ResourceID      string  `json:"resource_id"`
		IntervalSeconds float64 `json:"interval_seconds"`
		Status          string  `json:"status"`
	}
	decodeJSON(t, w, &started)
	if started.ResourceID != "web1" || started.Status != string(models.StreamActive) {
		t.Fatalf("unexpected start response: %+v", started)
	}
	if started.IntervalSeconds != 2 {
		t.Fatalf("interval = %v, want default 2", started.IntervalSeconds)
	}

	// Second start for the same container is rejected.
	w = app.request(t, http.MethodPost, "/api/streams/web1/start", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate start status = %d, want 400", w.Code)
	}

	// The stream shows up in list and get.
	w = app.request(t, http.MethodGet, "/api/streams", token, nil)
	var list struct {
		Count int `json:"count"`
	}
	decodeJSON(t, w, &list)
	if list.Count != 1 {
		t.Fatalf("stream count = %d, want 1", list.Count)
	}
	w = app.request(t, http.MethodGet, "/api/streams/web1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	// Stop, then stopping again is rejected.
	w = app.request(t, http.MethodPost, "/api/streams/web1/stop", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d, body %s", w.Code, w.Body.String())
	}
	w = app.request(t, http.MethodPost, "/api/streams/web1/stop", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("double stop status = %d, want 400", w.Code)
	}
}

func TestStreamStartCustomInterval(t *testing.T) {
	app := newTestApp(t)
	_, token := app.login(t, "alice")

	w := app.request(t, http.MethodPost, "/api/streams/web1/start", token,
		map[string]any{"interval_seconds": 0.5})
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d, body %s", w.Code, w.Body.String())
	}
	var started struct {
		IntervalSeconds float64 `json:"interval_seconds"`
	}
	decodeJSON(t, w, &started)
	if started.IntervalSeconds != 0.5 {
		t.Fatalf("interval = %v, want 0.5", started.IntervalSeconds)
	}
}

func TestStreamStartChunkedBody(t *testing.T) {
	app := newTestApp(t)
	_, token := app.login(t, "alice")

	// Wrapping the reader hides its concrete type so the request carries
	// no Content-Length, like a chunked transfer.
	body := struct{ io.Reader }{strings.NewReader(`{"interval_seconds":0.5}`)}
	req := httptest.NewRequest(http.MethodPost, "/api/streams/web1/start", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if req.ContentLength != -1 {
		t.Fatalf("content length = %d, want -1", req.ContentLength)
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d, body %s", w.Code, w.Body.String())
	}
	var started struct {
		IntervalSeconds float64 `json:"interval_seconds"`
	}
	decodeJSON(t, w, &started)
	if started.IntervalSeconds != 0.5 {
		t.Fatalf("interval = %v, want 0.5 from chunked body", started.IntervalSeconds)
	}
}

func TestStreamStartRejectsMalformedBody(t *testing.T) {
	app := newTestApp(t)
	_, token := app.login(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/streams/web1/start",
		strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestStreamStartRejectsBadInterval(t *testing.T) {
	app := newTestApp(t)
	_, token := app.login(t, "alice")

	for _, interval := range []float64{-1, 7200} {
		w := app.request(t, http.MethodPost, "/api/streams/web1/start", token,
			map[string]any{"interval_seconds": interval})
		if w.Code != http.StatusBadRequest {
			t.Errorf("interval %v: status = %d, want 400", interval, w.Code)
		}
	}
}

func TestStreamGetUnknownContainer(t *testing.T) {
	app := newTestApp(t)
	_, token := app.login(t, "alice")

	w := app.request(t, http.MethodGet, "/api/streams/ghost", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
