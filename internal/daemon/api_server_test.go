package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mirrorvault/internal/control"
	"mirrorvault/internal/pairs"
	"mirrorvault/internal/status"
	"mirrorvault/internal/store"
)

type readerStub struct {
	settings pairs.Settings
	statuses []status.PairStatus
	runs     []store.Run
	filter   store.RunFilter
}

func (r *readerStub) Status(context.Context) Status {
	return Status{Running: true, View: control.View{Settings: r.settings, Statuses: r.statuses}}
}

func (r *readerStub) Settings() pairs.Settings { return r.settings }

func (r *readerStub) History(_ context.Context, filter store.RunFilter) ([]store.Run, error) {
	r.filter = filter
	return r.runs, nil
}

func newStubServer() (*apiServer, *readerStub) {
	settings := pairs.Settings{CheckIntervalSeconds: 60}
	first := settings.Add(pairs.NewPair("/a", "/b"))
	settings.Add(pairs.NewPair("/c", "/d"))
	st := status.NewPairStatus(first.ID)
	st.Apply(status.Update{State: status.Success, FilesCopied: 3}, time.Now())
	stub := &readerStub{
		settings: settings,
		statuses: []status.PairStatus{st},
		runs:     []store.Run{{ID: 7, PairID: first.ID, Outcome: "success"}},
	}
	return &apiServer{reader: stub}, stub
}

func TestAPIServerHandlePairs(t *testing.T) {
	srv, _ := newStubServer()

	w := httptest.NewRecorder()
	srv.handlePairs(w, httptest.NewRequest(http.MethodGet, "/api/pairs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var views []PairView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(views))
	}
	if views[0].Status.State != status.Success || views[0].SuccessRate != 100 {
		t.Fatalf("first pair = %+v", views[0])
	}
	if views[1].Status.State != status.Pending || views[1].LastRun != "Never" {
		t.Fatalf("second pair should render pending/never, got %+v", views[1])
	}
}

func TestAPIServerHandleHistory(t *testing.T) {
	srv, stub := newStubServer()

	w := httptest.NewRecorder()
	srv.handleHistory(w, httptest.NewRequest(http.MethodGet, "/api/history?pair=abc&limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if stub.filter.PairID != "abc" || stub.filter.Limit != 5 {
		t.Fatalf("filter = %+v", stub.filter)
	}

	w = httptest.NewRecorder()
	srv.handleHistory(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=x", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestAPIServerRejectsNonGet(t *testing.T) {
	srv, _ := newStubServer()
	w := httptest.NewRecorder()
	srv.handleStatus(w, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := newStubServer()
	handler := srv.routes("secret", nil)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic secret", want: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer secret", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
