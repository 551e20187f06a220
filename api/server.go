/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/schedules/*      Inventory and fares
  /api/bookings/*       Booking lifecycle and payments
  /api/wallets/*        Wallet ledger
  /api/drafts/*         In-progress booking forms
  /api/admin/*          Admin operations
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus metrics

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Schedule routes
		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.ListSchedules)
			r.Post("/", h.CreateSchedule)
			r.Get("/{scheduleID}", h.GetSchedule)
			r.Get("/{scheduleID}/availability", h.GetAvailability)
		})

		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Get("/{reference}", h.GetBooking)
			r.Post("/{reference}/confirm", h.ConfirmBooking)
			r.Post("/{reference}/payment/callback", h.GatewayCallback)
			r.Post("/{reference}/cancel", h.CancelBooking)
			r.Post("/{reference}/complete", h.CompleteBooking)
		})

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/{userID}/bookings", h.ListUserBookings)
		})

		// Wallet routes
		r.Route("/wallets", func(r chi.Router) {
			r.Post("/", h.CreateWallet)
			r.Get("/{walletID}", h.GetWallet)
			r.Post("/{walletID}/recharge", h.RechargeWallet)
			r.Get("/{walletID}/balance", h.GetBalance)
			r.Get("/{walletID}/transactions", h.ListTransactions)
			r.Get("/{walletID}/audit", h.AuditWallet)
		})

		// Draft routes
		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", h.SaveDraft)
			r.Get("/{draftID}", h.GetDraft)
			r.Delete("/{draftID}", h.DeleteDraft)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/expiry/sweep", h.TriggerExpirySweep)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	return r
}
