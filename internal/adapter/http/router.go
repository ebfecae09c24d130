package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/creditledger/internal/adapter/http/handler"
	"github.com/iho/creditledger/internal/adapter/http/middleware"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/auth"
	"github.com/iho/creditledger/internal/infrastructure/metrics"
	"github.com/iho/creditledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler *handler.AccountHandler
	LedgerHandler  *handler.LedgerHandler
	IntentHandler  *handler.IntentHandler
	WebhookHandler *handler.WebhookHandler
	SplitHandler   *handler.SplitHandler
	AuthHandler    *handler.AuthHandler
	HealthHandler  *handler.HealthHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter

	// AuthEnabled protects the API with operator JWTs. Token issuance,
	// packages and the gateway webhook stay public.
	AuthEnabled bool
	JWTManager  *auth.JWTManager

	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	authenticate := passthrough
	require := func(domain.Role) func(http.Handler) http.Handler { return passthrough }
	if cfg.AuthEnabled {
		authenticate = middleware.Authenticate(cfg.JWTManager, cfg.Metrics)
		require = func(role domain.Role) func(http.Handler) http.Handler {
			return middleware.RequireRole(role, cfg.Metrics)
		}
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Post("/auth/token", cfg.AuthHandler.Token)
		r.Get("/packages", cfg.IntentHandler.Packages)
		r.Post("/webhooks/payments", cfg.WebhookHandler.Receive)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			if cfg.IdempotencyStore != nil {
				r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
			}

			// Reads
			r.Group(func(r chi.Router) {
				r.Use(require(domain.RoleViewer))

				r.Get("/auth/me", cfg.AuthHandler.Me)

				r.Get("/accounts", cfg.AccountHandler.List)
				r.Get("/accounts/{id}", cfg.AccountHandler.Get)
				r.Get("/accounts/{id}/balance", cfg.AccountHandler.GetBalance)
				r.Get("/accounts/{id}/balance/history", cfg.AccountHandler.GetHistoricalBalance)
				r.Get("/accounts/{id}/transactions", cfg.AccountHandler.ListTransactions)

				r.Get("/owners/{kind}/{ownerId}/balance", cfg.AccountHandler.GetOwnerBalance)
				r.Get("/owners/{kind}/{ownerId}/intents", cfg.IntentHandler.ListByOwner)

				r.Get("/intents/{id}", cfg.IntentHandler.Get)
				r.Get("/intents/{id}/events", cfg.IntentHandler.Events)

				r.Get("/ledger/consistency", cfg.LedgerHandler.VerifyAll)
				r.Get("/ledger/consistency/{accountId}", cfg.LedgerHandler.VerifyAccount)

				r.Get("/split-configurations", cfg.SplitHandler.List)
				r.Get("/split-configurations/{id}", cfg.SplitHandler.Get)
			})

			// Writes
			r.Group(func(r chi.Router) {
				r.Use(require(domain.RoleOperator))

				r.Post("/intents", cfg.IntentHandler.Create)
				r.Post("/intents/{id}/cancel", cfg.IntentHandler.Cancel)
				r.Post("/intents/{id}/reconcile", cfg.IntentHandler.Reconcile)

				r.Post("/ledger/usage", cfg.LedgerHandler.RecordUsage)
				r.Post("/ledger/refunds", cfg.LedgerHandler.RecordRefund)
				r.Post("/ledger/transfers", cfg.LedgerHandler.Transfer)

				r.Post("/split-configurations", cfg.SplitHandler.Create)
				r.Post("/split-configurations/validate", cfg.SplitHandler.Validate)
				r.Put("/split-configurations/{id}", cfg.SplitHandler.Update)
				r.Delete("/split-configurations/{id}", cfg.SplitHandler.Delete)
			})

			// Administration
			r.Group(func(r chi.Router) {
				r.Use(require(domain.RoleAdmin))

				r.Post("/accounts/{id}/deactivate", cfg.LedgerHandler.Deactivate)
			})
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
