package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func doProbe(t *testing.T, h *Handler, path string) (int, response) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s body: %v", path, err)
	}
	return rec.Code, body
}

func pass(_ context.Context) error { return nil }

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "provider", Check: func(_ context.Context) error {
		return errors.New("down")
	}})

	code, body := doProbe(t, h, "/healthz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200 even with failing checkers", code)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q", body.Status)
	}
}

func TestReadyz_AllPass(t *testing.T) {
	t.Parallel()

	h := New(
		Checker{Name: "provider", Check: pass},
		Checker{Name: "database", Check: pass},
	)

	code, body := doProbe(t, h, "/readyz")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Checks["provider"] != "ok" || body.Checks["database"] != "ok" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestReadyz_NamesFailingDependency(t *testing.T) {
	t.Parallel()

	h := New(
		Checker{Name: "provider", Check: pass},
		Checker{Name: "database", Check: func(_ context.Context) error {
			return errors.New("connection refused")
		}},
	)

	code, body := doProbe(t, h, "/readyz")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if body.Status != "fail" {
		t.Errorf("body status = %q", body.Status)
	}
	if body.Checks["database"] != "fail: connection refused" {
		t.Errorf("database check = %q", body.Checks["database"])
	}
	if body.Checks["provider"] != "ok" {
		t.Errorf("provider check = %q, healthy checks should still be reported", body.Checks["provider"])
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	t.Parallel()

	code, body := doProbe(t, New(), "/readyz")
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("status = %d body = %q, want trivially ready", code, body.Status)
	}
}

func TestReadyz_CheckSeesCancelledRequestContext(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHealthz_ContentType(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	New().Healthz(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}
