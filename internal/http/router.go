package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"course-localization-service/internal/events"
	"course-localization-service/internal/language"
	"course-localization-service/internal/storage"
)

// Deps are the handlers' collaborators.
type Deps struct {
	// Live serves the WebSocket session protocol.
	Live       http.Handler
	Dispatcher *events.Dispatcher
	Store      storage.Store
	Languages  *language.Set
	// Ready reports readiness; nil means always ready.
	Ready func(ctx context.Context) error
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	h := &handlers{deps: d}

	r.Route("/v1", func(r chi.Router) {
		if d.Live != nil {
			r.Handle("/live", d.Live)
		}
		r.Get("/languages", h.languages)
		if d.Dispatcher != nil {
			r.Post("/uploads", h.upload)
		}
		r.Route("/courses/{courseId}", func(r chi.Router) {
			r.Get("/artifacts", h.artifacts)
			r.Get("/captions/{lang}", h.caption)
		})
	})

	return r
}
