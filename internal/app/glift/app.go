// Package glift собирает HTTP-сервис биллинга: хранилище, кеш, брокер
// уведомлений, клиент платёжного провайдера и сервисы синхронизации.
package glift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/glift-app/glift-billing/internal/cache"
	"github.com/glift-app/glift-billing/internal/config"
	"github.com/glift-app/glift-billing/internal/lib/jwt"
	"github.com/glift-app/glift-billing/internal/lib/sl"
	"github.com/glift-app/glift-billing/internal/metrics"
	"github.com/glift-app/glift-billing/internal/migrations"
	"github.com/glift-app/glift-billing/internal/paymentprovider"
	"github.com/glift-app/glift-billing/internal/rabbitmq"
	"github.com/glift-app/glift-billing/internal/services/customer"
	"github.com/glift-app/glift-billing/internal/services/reconciler"
	"github.com/glift-app/glift-billing/internal/services/subscription"
	"github.com/glift-app/glift-billing/internal/storage/repository"
)

// App HTTP-сервис биллинга.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	amqp   *amqp.Connection
}

// Deps собранные зависимости сервиса; их же использует CLI обслуживания.
type Deps struct {
	DB           *repository.Storage
	Cache        *cache.Cache
	Billing      *paymentprovider.Client
	Metrics      *metrics.Metrics
	Synchronizer *subscription.Service
}

// NewDeps подключает хранилище и кеш и создаёт синхронизатор подписок.
// Вызывающий закрывает DB и Cache.
func NewDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*Deps, error) {
	const op = "app.glift.NewDeps"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := metrics.New(reg)
	billing := paymentprovider.NewClient(cfg.SecretKey, cfg.WebhookSecret, paymentprovider.WithErrorCounter(m))
	resolver := customer.NewResolver(logger, billing, db)
	synchronizer := subscription.NewService(logger, resolver, billing, db, cacheRedis, m, subscription.Options{
		PremiumPriceID: cfg.PremiumPriceID,
		TrialDays:      cfg.TrialDays,
		CacheTTL:       cfg.DetailsCacheTTL,
	})

	return &Deps{
		DB:           db,
		Cache:        cacheRedis,
		Billing:      billing,
		Metrics:      m,
		Synchronizer: synchronizer,
	}, nil
}

// Close освобождает соединения зависимостей.
func (d *Deps) Close() error {
	return errors.Join(d.Cache.Close(), d.DB.Close())
}

// New собирает сервис: применяет миграции, подключает зависимости
// и регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := NewDeps(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(deps.DB.DB, cfg.MigrationsPath); err != nil {
		_ = deps.Close()
		return nil, err
	}
	if err = repository.CheckDatabaseReady(ctx, deps.DB); err != nil {
		_ = deps.Close()
		return nil, err
	}

	var (
		notifier reconciler.Notifier
		conn     *amqp.Connection
	)
	if cfg.RabbitMQURL != "" {
		conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.NotificationQueues())
		if err != nil {
			_ = conn.Close()
			_ = deps.Close()
			return nil, err
		}
		notifier = rabbitmq.NewPublisher(ch, cfg.Exchange)
	} else {
		logger.Warn("rabbitmq url is not set, notifications are disabled")
	}

	rec := reconciler.New(logger, deps.DB, deps.DB, deps.Billing, deps.Cache, notifier, deps.Metrics, reconciler.Options{
		PremiumPriceID:    cfg.PremiumPriceID,
		ProcessedEventTTL: cfg.ProcessedEventTTL,
	})

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Synchronizer: deps.Synchronizer,
		Reconciler:   rec,
		Verifier:     deps.Billing,
		Tokens:       jwt.NewMaker(cfg.JWTSecret, cfg.TokenTTL),
		Users:        deps.DB,
		HealthChecks: healthChecks(deps),
	}, cfg)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     deps.DB,
		cache:  deps.Cache,
		amqp:   conn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", sl.Err(err))
	}
}
