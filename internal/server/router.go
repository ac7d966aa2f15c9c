// Package server собирает HTTP API магазина: маршруты, middleware и /metrics.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iudanet/themeshop/internal/server/handlers"
	"github.com/iudanet/themeshop/internal/server/metrics"
	"github.com/iudanet/themeshop/internal/server/middleware"
	"github.com/iudanet/themeshop/pkg/api"
)

// BasePath - префикс всех REST эндпоинтов
const BasePath = "/api/v1"

// Options - зависимости HTTP роутера
type Options struct {
	Logger    *slog.Logger
	Auth      *handlers.AuthHandler
	Checkout  *handlers.CheckoutHandler
	Health    *handlers.HealthHandler
	Verifier  middleware.TokenVerifier
	Observer  middleware.RequestObserver
	Gatherer  prometheus.Gatherer // nil - /metrics не регистрируется
	AuthLimit *middleware.RateLimiter
}

// NewRouter собирает http.Handler со всеми маршрутами
func NewRouter(opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний)
	root.Use(
		middleware.LoggingMiddleware(opts.Logger, opts.Observer, BasePath+"/health", "/metrics"),
		middleware.RecoveryMiddleware(opts.Logger),
	)

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.SendError(w, http.StatusNotFound, api.CodeNotFound, "route not found")
	})
	root.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.SendError(w, http.StatusMethodNotAllowed, api.CodeNotFound, "method not allowed")
	})

	if opts.Gatherer != nil {
		root.Handle("/metrics", metrics.Handler(opts.Gatherer))
	}

	sub := chi.NewRouter()
	registerRoutes(sub, opts)
	root.Mount(BasePath, sub)

	return root
}

// registerRoutes - единая точка регистрации REST эндпоинтов
func registerRoutes(r chi.Router, opts Options) {
	requireAuth := middleware.AuthMiddleware(opts.Logger, opts.Verifier)

	r.Get("/health", opts.Health.Health)

	// auth
	r.Group(func(r chi.Router) {
		if opts.AuthLimit != nil {
			r.Use(opts.AuthLimit.Middleware())
		}
		r.Post("/auth/register", opts.Auth.Register)
		r.Post("/auth/login", opts.Auth.Login)
		r.Post("/auth/refresh", opts.Auth.Refresh)
	})
	r.With(requireAuth).Post("/auth/logout", opts.Auth.Logout)

	// webhook подписывается ключом Stripe, а не токеном пользователя
	r.Post("/webhook", opts.Checkout.Webhook)

	// checkout и история заказов
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/checkout/session", opts.Checkout.CreateSession)
		r.Get("/orders", opts.Checkout.Orders)
		r.Get("/orders/purchases", opts.Checkout.Purchases)
		r.Get("/orders/canceled", opts.Checkout.Cancellations)
	})
}
