package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// timerCounter reports how many reminder timers are live.
type timerCounter interface {
	ActiveCount() int
}

// pinger checks that the database answers.
type pinger interface {
	Ping(ctx context.Context) error
}

type statusResponse struct {
	Status       string `json:"status"`
	Bot          string `json:"bot"`
	ActiveTimers int    `json:"active_timers"`
	Timestamp    string `json:"timestamp"`
}

// newHTTPHandler serves the liveness endpoints used by the hosting platform.
// /health also fails while the database does not answer.
func newHTTPHandler(timers timerCounter, db pinger, now func() time.Time) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	ok := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
	r.Get("/", ok)
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		ok(w, req)
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statusResponse{
			Status:       "running",
			Bot:          "active",
			ActiveTimers: timers.ActiveCount(),
			Timestamp:    now().UTC().Format(time.RFC3339),
		})
	})
	return r
}
