/**
 * @description
 * This file sets up the HTTP router for the collections-service. It defines
 * the API endpoints, associates them with their handlers, and applies
 * middleware: logging, panic recovery, CORS, authentication, role checks,
 * and per-scope rate limits.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/collectra/collections-service/internal/app"
	"github.com/collectra/collections-service/internal/domain"
)

// RouterConfig carries the routing-level settings from the config layer.
type RouterConfig struct {
	AllowedOrigins []string
	APIRateLimit   int64
	APIRateWindow  time.Duration
	AuthRateLimit  int64
	AuthRateWindow time.Duration
	BulkRateLimit  int64
	BulkRateWindow time.Duration
}

// Routes creates and returns the router for the collections service.
func Routes(h *Handlers, service *app.Service, limiter app.RateLimiter, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		// Credential endpoints carry a tight per-IP limit.
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(limiter, "auth", cfg.AuthRateLimit, cfg.AuthRateWindow))
			r.Post("/auth/register", h.RegisterHandler)
			r.Post("/auth/login", h.LoginHandler)
		})

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(service))
			r.Use(RateLimit(limiter, "api", cfg.APIRateLimit, cfg.APIRateWindow))

			r.Post("/auth/logout", h.LogoutHandler)

			r.Get("/accounts", h.ListAccountsHandler)
			r.With(RequireRole(domain.RoleAdmin, domain.RoleManager)).
				Get("/accounts/export", h.ExportAccountsHandler)
			r.With(RequireRole(domain.RoleAdmin, domain.RoleManager),
				RateLimit(limiter, "bulk", cfg.BulkRateLimit, cfg.BulkRateWindow)).
				Post("/accounts/bulk-update", h.BulkUpdateAccountsHandler)
			r.With(RequireRole(domain.RoleAdmin, domain.RoleManager, domain.RoleAgent)).
				Post("/accounts", h.CreateAccountHandler)

			r.Get("/accounts/{accountID}", h.GetAccountHandler)
			r.With(RequireRole(domain.RoleAdmin, domain.RoleManager, domain.RoleAgent)).
				Put("/accounts/{accountID}", h.UpdateAccountHandler)
			r.With(RequireRole(domain.RoleAdmin, domain.RoleManager)).
				Delete("/accounts/{accountID}", h.DeleteAccountHandler)

			r.Get("/accounts/{accountID}/payments", h.GetPaymentHistoryHandler)
			r.With(RequireRole(domain.RoleAdmin, domain.RoleManager, domain.RoleAgent)).
				Post("/accounts/{accountID}/payments", h.RecordPaymentHandler)
			r.With(RequireRole(domain.RoleAdmin, domain.RoleManager)).
				Put("/payments/{paymentID}/status", h.UpdatePaymentStatusHandler)

			r.Get("/accounts/{accountID}/activities", h.GetActivityTimelineHandler)
			r.With(RequireRole(domain.RoleAdmin, domain.RoleManager, domain.RoleAgent)).
				Post("/accounts/{accountID}/activities", h.LogActivityHandler)
			r.Post("/activities/bulk", h.GetBulkActivitiesHandler)
		})
	})

	return r
}
