/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

SECURITY NOTE:
  No authentication middleware; the Authorizer seam is where a deployment
  plugs its identity provider in. All endpoints are public in the dev server.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fitgrid/roster-engine/config"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(config.AppConfig.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Staff calendar routes
		r.Route("/staff/{id}", func(r chi.Router) {
			r.Get("/calendar", h.GetCalendar)
			r.Get("/summary", h.GetStaffSummary)
			r.Get("/requests", h.ListStaffRequests)
			r.Post("/conflicts/check", h.CheckConflicts)
			r.Post("/shifts", h.CreateShift)
			r.Post("/time-off", h.CreateTimeOff)
			r.Post("/pt-availability", h.CreatePTAvailability)
		})

		// Request approval routes
		r.Route("/requests", func(r chi.Router) {
			r.Get("/pending", h.ListPendingRequests)
			r.Get("/{id}", h.GetRequest)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
			r.Post("/{id}/cancel", h.CancelRequest)
		})

		// Shift lifecycle routes
		r.Route("/shifts", func(r chi.Router) {
			r.Post("/{id}/start", h.StartShift)
			r.Post("/{id}/complete", h.CompleteShift)
			r.Post("/{id}/cancel", h.CancelShift)
		})

		// Template routes
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Post("/{id}/generate", h.GenerateShifts)
		})
	})

	return r
}
