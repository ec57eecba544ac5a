package glift

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/glift-app/glift-billing/internal/config"
	"github.com/glift-app/glift-billing/internal/http/handlers/health"
	"github.com/glift-app/glift-billing/internal/http/handlers/subscription/details"
	"github.com/glift-app/glift-billing/internal/http/handlers/subscription/setup"
	"github.com/glift-app/glift-billing/internal/http/handlers/subscription/update"
	"github.com/glift-app/glift-billing/internal/http/handlers/webhook/billing"
	"github.com/glift-app/glift-billing/internal/http/middlewarectx"
)

// Synchronizer операции синхронизатора, доступные пользователю.
type Synchronizer interface {
	details.Service
	setup.Service
	update.Service
}

// Services зависимости обработчиков.
type Services struct {
	Synchronizer Synchronizer
	Reconciler   billing.Reconciler
	Verifier     billing.Verifier
	Tokens       middlewarectx.TokenParser
	Users        middlewarectx.UserStore
	HealthChecks map[string]health.Check
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services, cfg *config.Config) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Пользовательские точки: сессия и ограничение частоты
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(logger, svc.Tokens, svc.Users, cfg.CookieName))
			r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RPS, cfg.Burst))
			r.Get("/subscription-details", details.New(logger, svc.Synchronizer).ServeHTTP)
			r.Post("/setup-subscription", setup.New(logger, svc.Synchronizer).ServeHTTP)
			r.Post("/update-subscription", update.New(logger, svc.Synchronizer).ServeHTTP)
		})

		// Вебхук без сессии, проверяется подписью
		r.Post("/webhooks/billing", billing.New(logger, svc.Verifier, svc.Reconciler).ServeHTTP)
	})

	r.Get("/healthz", health.New(logger, svc.HealthChecks).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

func healthChecks(deps *Deps) map[string]health.Check {
	return map[string]health.Check{
		"postgres": deps.DB.DB.PingContext,
		"redis": func(ctx context.Context) error {
			return deps.Cache.Db.Ping(ctx).Err()
		},
	}
}
