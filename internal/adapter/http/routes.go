package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the /api routes on r. idempotency, when non-nil,
// wraps fork creation so a retried POST does not open a second terminal.
// ws, when non-nil, serves the push channel at /api/ws.
func MountRoutes(r chi.Router, h *Handlers, idempotency func(http.Handler) http.Handler, ws http.HandlerFunc) {
	if idempotency == nil {
		idempotency = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/presets", h.ListPresets)

		r.Get("/agents", h.ListAgents)
		r.Post("/agents/reload", h.ReloadAgents)

		r.Get("/forks", h.ListForks)
		r.With(idempotency).Post("/forks", h.CreateFork)
		r.Route("/forks/{id}", func(r chi.Router) {
			r.Get("/", h.GetFork)
			r.Delete("/", h.TerminateFork)
			r.Post("/progress", h.ReportProgress)
			r.Post("/complete", h.ReportComplete)
			r.Post("/fail", h.ReportFailure)
			r.Post("/output", h.ReportOutput)
		})

		if ws != nil {
			r.Get("/ws", ws)
		}
	})
}
