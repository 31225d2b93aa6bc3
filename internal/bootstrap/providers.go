package bootstrap

import (
	"github.com/redis/go-redis/v9"

	"github.com/PrathyushaPonnala/sales-prediction/internal/adapters/config"
	errnoop "github.com/PrathyushaPonnala/sales-prediction/internal/adapters/errors/noop"
	"github.com/PrathyushaPonnala/sales-prediction/internal/adapters/errors/sentry"
	pgclient "github.com/PrathyushaPonnala/sales-prediction/internal/adapters/postgres"
	redisclient "github.com/PrathyushaPonnala/sales-prediction/internal/adapters/redis"
	"github.com/PrathyushaPonnala/sales-prediction/internal/api"
	"github.com/PrathyushaPonnala/sales-prediction/internal/api/health"
	salesapi "github.com/PrathyushaPonnala/sales-prediction/internal/api/sales"
	"github.com/PrathyushaPonnala/sales-prediction/internal/artifacts"
	"github.com/PrathyushaPonnala/sales-prediction/internal/forecast"
	"github.com/PrathyushaPonnala/sales-prediction/internal/metrics"
	pgrepo "github.com/PrathyushaPonnala/sales-prediction/internal/repository/postgres"
	salessvc "github.com/PrathyushaPonnala/sales-prediction/internal/services/sales"
	"github.com/PrathyushaPonnala/sales-prediction/internal/workers"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure initializes Postgres, optional Redis, and artifact storage
func (c *Container) MustInitInfrastructure() {
	var err error

	// PostgreSQL
	c.Log.Info("Connecting to PostgreSQL...")
	c.PG, err = pgclient.NewClient(c.Config.Postgres)
	if err != nil {
		c.Log.Fatalf("failed to connect postgres: %v", err)
	}
	c.Log.Info("✓ PostgreSQL connected")

	// Schema is idempotent, safe to run on every start
	if err := pgrepo.Migrate(c.Context, c.PG.DB()); err != nil {
		c.Log.Fatalf("failed to migrate postgres schema: %v", err)
	}
	c.Log.Info("✓ Schema up to date")

	// Redis is optional; without it product locking stays in-process,
	// which is only safe for single-replica deployments
	if c.Config.Redis.Enabled() {
		c.Log.Info("Connecting to Redis...")
		c.Redis, err = redisclient.NewClient(c.Config.Redis)
		if err != nil {
			c.Log.Fatalf("failed to connect redis: %v", err)
		}
		c.Log.Info("✓ Redis connected")
	} else {
		c.Log.Info("Redis not configured, product locks are in-process")
	}

	// Artifact storage (local directory or Azure blob container)
	c.Artifacts, err = artifacts.New(c.Context, c.Config.Storage)
	if err != nil {
		c.Log.Fatalf("failed to initialize artifact storage: %v", err)
	}
	c.Log.Infof("✓ Artifact storage initialized (%s)", c.Config.Storage.Backend)
}

// ========================================
// Phase 3: Global Model Artifacts
// ========================================

// MustInitModels resolves the manifest and the global correction model.
// A model that does not honor the manifest contract must never serve, so
// any failure here is fatal.
func (c *Container) MustInitModels() {
	c.Log.Info("Resolving global model artifacts...")

	models, err := forecast.Resolve(c.Context, c.Artifacts)
	if err != nil {
		c.Log.Fatalf("failed to resolve global model: %v", err)
	}
	c.Models = models

	c.Log.Infow("✓ Global model resolved",
		"model", models.Manifest.ActiveGlobalModel,
		"expected_features", models.Manifest.GlobalModelConfig.ExpectedFeatures,
	)
}

// ========================================
// Phase 4: Domain Layer - Repositories
// ========================================

// MustInitRepositories initializes all domain repositories
func (c *Container) MustInitRepositories() {
	c.Repos.Sales = pgrepo.NewSalesRepository(c.PG.DB())
	c.Repos.Metric = pgrepo.NewModelMetricRepository(c.PG.DB())

	c.Log.Info("✓ Repositories initialized")
}

// ========================================
// Phase 5: Forecast Pipeline
// ========================================

// MustInitForecast wires the per-product forecasting pipeline
func (c *Container) MustInitForecast() {
	c.Forecast.Locks = provideLocker(c.Config, c.Redis, c.Log)
	c.Forecast.Cache = forecast.NewModelCache(c.Artifacts, c.Log)
	c.Forecast.Saver = workers.NewModelSaver(
		c.Artifacts,
		c.Config.Forecast.SaveQueueSize,
		c.Config.Forecast.SaveTimeout,
	)

	c.Forecast.Engine = forecast.NewEngine(
		c.Forecast.Cache,
		c.Models.Booster,
		c.Models.Encoder,
		c.Repos.Sales,
		c.Forecast.Saver,
		c.Forecast.Locks,
		c.Log,
	)

	c.Log.Info("✓ Forecast pipeline initialized")
}

// ========================================
// Phase 6: Domain Services
// ========================================

// MustInitServices initializes domain services
func (c *Container) MustInitServices() {
	c.Services.Sales = salessvc.NewService(
		c.Repos.Sales,
		c.Repos.Metric,
		c.Forecast.Engine,
		c.Log,
	)

	c.Log.Info("✓ Services initialized")
}

// ========================================
// Phase 7: Application Layer
// ========================================

// MustInitApplication initializes the HTTP layer and metrics
func (c *Container) MustInitApplication() {
	// Health handler; the redis client is nil when locking is in-process
	var redisHealth *redis.Client
	if c.Redis != nil {
		redisHealth = c.Redis.Client()
	}
	c.Application.HealthHandler = health.New(
		c.Log,
		c.PG.DB(),
		redisHealth,
		c.Config.App.Name,
		c.Config.App.Version,
	)

	// Sales API handler with live forecast rate limiting
	c.Application.SalesHandler = salesapi.NewHandler(
		c.Services.Sales,
		c.Config.Forecast.LiveRatePerMinute,
		c.Config.Forecast.LiveRateBurst,
		c.Log,
	)

	// HTTP server
	c.Application.HTTPServer = api.NewServer(
		api.ServerConfig{
			Port:        c.Config.Server.Port,
			ServiceName: c.Config.App.Name,
			Version:     c.Config.App.Version,
		},
		c.Application.HealthHandler,
		c.Application.SalesHandler,
		c.Log,
	)

	// Initialize metrics
	metrics.Init()
	metrics.RegisterDatasetCollector(metrics.NewDatasetCollector(c.Log, c.PG.DB()))
	c.Log.Info("✓ Metrics initialized")

	c.Log.Info("✓ Application layer initialized")
}

// ========================================
// Phase 8: Background Processing
// ========================================

// MustInitBackground initializes background workers
func (c *Container) MustInitBackground() {
	scheduler := workers.NewScheduler()

	scheduler.RegisterWorker(workers.NewForecastRefreshWorker(
		c.Repos.Sales,
		c.Services.Sales,
		c.Config.Workers.RefreshInterval,
		c.Config.Workers.RefreshMaxAge,
		c.Config.Workers.RefreshBatch,
		c.Config.Workers.RefreshEnabled,
	))

	c.Background.WorkerScheduler = scheduler

	c.Log.Info("✓ Background processing initialized")
}

// ========================================
// Helper Provider Functions
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideLocker(cfg *config.Config, redisClient *redisclient.Client, log *logger.Logger) forecast.Locker {
	if redisClient != nil {
		log.Infow("✓ Product locking: redis", "ttl", cfg.Forecast.LockTTL)
		return forecast.NewRedisLocker(redisClient, cfg.Forecast.LockTTL)
	}

	log.Info("✓ Product locking: in-process")
	return forecast.NewKeyedMutex()
}
