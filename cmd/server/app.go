package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/creditledger/internal/adapter/gateway"
	httpAdapter "github.com/iho/creditledger/internal/adapter/http"
	"github.com/iho/creditledger/internal/adapter/http/handler"
	"github.com/iho/creditledger/internal/adapter/http/middleware"
	"github.com/iho/creditledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/creditledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/creditledger/internal/adapter/repository/redis"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/auth"
	"github.com/iho/creditledger/internal/infrastructure/config"
	"github.com/iho/creditledger/internal/infrastructure/eventpublisher"
	"github.com/iho/creditledger/internal/infrastructure/metrics"
	"github.com/iho/creditledger/internal/infrastructure/postgres"
	"github.com/iho/creditledger/internal/infrastructure/redis"
	"github.com/iho/creditledger/internal/infrastructure/worker"
	"github.com/iho/creditledger/internal/usecase"
)

// limiterIdle is how long a client's rate limiter survives without requests.
const limiterIdle = 10 * time.Minute

// storage groups the repositories of one driver.
type storage struct {
	txManager    usecase.TransactionManager
	accounts     usecase.AccountRepository
	transactions usecase.TransactionRepository
	intents      usecase.IntentRepository
	splits       usecase.SplitConfigRepository
	outbox       usecase.OutboxRepository
	audit        usecase.AuditRepository
	retrier      usecase.Retrier
	checks       map[string]handler.Check
	closers      []func()
}

type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	server    *http.Server
	publisher *eventpublisher.EventPublisher
	sweeper   *worker.ExpirySweeper
	limiter   *middleware.RateLimiter
	closers   []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry) (*app, error) {
	m := metrics.NewWithRegisterer(reg)

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: store.closers}

	idempotency, deduper, err := openKeyValue(ctx, cfg, logger, store)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = store.closers

	packages, err := domain.ParseCreditPackages(cfg.CreditPackages)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("CREDIT_PACKAGES: %w", err)
	}

	creds, err := usecase.ParseOperatorCredentials(cfg.Operators)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("OPERATORS: %w", err)
	}

	idGen := postgresRepo.NewULIDGenerator()

	ledgerUC := usecase.NewLedgerUseCase(store.txManager, store.accounts, store.transactions, store.outbox, store.audit, idGen, store.retrier, m, logger)
	splitUC := usecase.NewSplitUseCase(store.txManager, store.splits, store.outbox, store.audit, idGen, m, logger)
	intentUC := usecase.NewIntentUseCase(store.txManager, store.intents, store.outbox, store.audit, splitUC, idGen, usecase.IntentSettings{
		PlatformOwnerID:  cfg.PlatformOwnerID,
		DefaultPartnerID: cfg.DefaultPartnerID,
		Packages:         packages,
		TTL:              cfg.IntentTTL,
		Grace:            cfg.ConfirmationGrace,
	}, m, logger)
	reconcileUC := usecase.NewReconciliationUseCase(store.txManager, store.intents, store.transactions, ledgerUC, intentUC, splitUC, idGen, store.retrier, m, logger)
	queryUC := usecase.NewQueryUseCase(store.accounts, store.transactions)

	// Broken configurations surface here but do not block start-up; the
	// affected categories fail per request until fixed.
	if err := splitUC.ValidateAll(ctx); err != nil {
		logger.Error().Err(err).Msg("split configuration validation failed")
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = uuid.NewString()
		logger.Warn().Msg("JWT_SECRET not set, issued tokens will not survive a restart")
	}
	jwtManager := auth.NewJWTManager(jwtSecret, cfg.JWTExpiration)

	webhookOpts := handler.WebhookOptions{
		Deduper:   deduper,
		Metrics:   m,
		DedupeTTL: cfg.WebhookDedupeTTL,
	}
	if cfg.WebhookSecret != "" {
		webhookOpts.Verifier = gateway.NewVerifier(cfg.WebhookSecret, cfg.WebhookTolerance)
	} else {
		logger.Warn().Msg("WEBHOOK_SECRET not set, gateway webhooks are accepted unsigned")
	}

	if cfg.RateLimitRPS > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:   handler.NewAccountHandler(queryUC),
		LedgerHandler:    handler.NewLedgerHandler(ledgerUC),
		IntentHandler:    handler.NewIntentHandler(intentUC, reconcileUC),
		WebhookHandler:   handler.NewWebhookHandler(reconcileUC, webhookOpts),
		SplitHandler:     handler.NewSplitHandler(splitUC),
		AuthHandler:      handler.NewAuthHandler(usecase.NewOperatorUseCase(creds), jwtManager),
		HealthHandler:    handler.NewHealthHandler(store.checks),
		IdempotencyStore: idempotency,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      a.limiter,
		AuthEnabled:      cfg.AuthEnabled,
		JWTManager:       jwtManager,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:           logger,
	})

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: store.outbox,
		Publisher:  eventpublisher.NewLogPublisher(logger),
		Logger:     logger,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})

	a.sweeper = worker.NewExpirySweeper(intentUC, worker.ExpiryConfig{
		Interval:  cfg.ExpirySweepInterval,
		BatchSize: cfg.ExpirySweepBatch,
	}, logger)

	return a, nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &storage{
			txManager:    memory.NewTxManager(store),
			accounts:     memory.NewAccountRepository(store),
			transactions: memory.NewTransactionRepository(store),
			intents:      memory.NewIntentRepository(store),
			splits:       memory.NewSplitConfigRepository(store),
			outbox:       memory.NewOutboxRepository(store),
			audit:        memory.NewAuditRepository(store),
			checks:       map[string]handler.Check{},
		}, nil
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	defer cancel()

	pool, err := postgres.NewPoolWithConfig(connectCtx, postgres.PoolConfig{
		DatabaseURL:       cfg.DatabaseURL,
		MaxConns:          cfg.DatabaseMaxConns,
		MinConns:          cfg.DatabaseMinConns,
		MaxConnLifetime:   cfg.DatabaseConnLifetime,
		HealthCheckPeriod: cfg.DatabaseHealthCheck,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	logger.Info().Msg("connected to postgres")

	return &storage{
		txManager:    postgresRepo.NewTxManager(pool),
		accounts:     postgresRepo.NewAccountRepository(pool),
		transactions: postgresRepo.NewTransactionRepository(pool),
		intents:      postgresRepo.NewIntentRepository(pool),
		splits:       postgresRepo.NewSplitConfigRepository(pool),
		outbox:       postgresRepo.NewOutboxRepository(pool),
		audit:        postgresRepo.NewAuditRepository(pool),
		retrier:      postgresRepo.NewRetrier(logger),
		checks:       map[string]handler.Check{"postgres": pool.Ping},
		closers:      []func(){pool.Close},
	}, nil
}

// openKeyValue picks the idempotency store and webhook deduper: Redis when
// configured, otherwise a process-local map.
func openKeyValue(ctx context.Context, cfg *config.Config, logger zerolog.Logger, store *storage) (usecase.IdempotencyStore, usecase.DeliveryDeduper, error) {
	if cfg.RedisURL == "" {
		kv := memory.NewKeyValue()
		return kv, kv, nil
	}

	client, err := redis.NewClient(ctx, redis.ClientConfig{
		URL:      cfg.RedisURL,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info().Msg("connected to redis")

	store.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	store.closers = append(store.closers, func() { _ = client.Close() })

	return redisRepo.NewIdempotencyStore(client), redisRepo.NewDeliveryDeduper(client), nil
}

// Run serves HTTP and the background workers until ctx is cancelled, then
// shuts the server down gracefully.
func (a *app) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("port", a.cfg.HTTPPort).Msg("starting server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return ignoreCancel(a.publisher.Start(ctx)) })
	g.Go(func() error { return ignoreCancel(a.sweeper.Start(ctx)) })

	if a.limiter != nil {
		g.Go(func() error {
			return ignoreCancel(worker.Every(ctx, limiterIdle, a.logger, func(context.Context) error {
				if n := a.limiter.CleanupLimiters(limiterIdle); n > 0 {
					a.logger.Debug().Int("removed", n).Msg("rate limiters cleaned up")
				}
				return nil
			}))
		})
	}

	return g.Wait()
}

// Close releases storage connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
