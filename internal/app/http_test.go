package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fixedCounter int

func (c fixedCounter) ActiveCount() int { return int(c) }

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

func TestHTTP_Health(t *testing.T) {
	h := newHTTPHandler(fixedCounter(0), fakeDB{}, time.Now)
	for _, path := range []string{"/", "/health"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
			t.Fatalf("%s: %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestHTTP_Status(t *testing.T) {
	at := time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)
	h := newHTTPHandler(fixedCounter(3), fakeDB{}, func() time.Time { return at })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code: %d", rec.Code)
	}
	var got statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := statusResponse{Status: "running", Bot: "active", ActiveTimers: 3, Timestamp: "2024-01-01T04:00:00Z"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestHTTP_UnknownPath(t *testing.T) {
	h := newHTTPHandler(fixedCounter(0), fakeDB{}, time.Now)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code: %d", rec.Code)
	}
}

func TestHTTP_HealthFailsWithoutDatabase(t *testing.T) {
	h := newHTTPHandler(fixedCounter(0), fakeDB{err: errors.New("closed")}, time.Now)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("root must stay up: %d", rec.Code)
	}
}
