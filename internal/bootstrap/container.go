package bootstrap

import (
	"context"
	"sync"

	"github.com/PrathyushaPonnala/sales-prediction/internal/adapters/config"
	pgclient "github.com/PrathyushaPonnala/sales-prediction/internal/adapters/postgres"
	redisclient "github.com/PrathyushaPonnala/sales-prediction/internal/adapters/redis"
	"github.com/PrathyushaPonnala/sales-prediction/internal/api"
	"github.com/PrathyushaPonnala/sales-prediction/internal/api/health"
	salesapi "github.com/PrathyushaPonnala/sales-prediction/internal/api/sales"
	"github.com/PrathyushaPonnala/sales-prediction/internal/artifacts"
	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/model"
	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/sales"
	"github.com/PrathyushaPonnala/sales-prediction/internal/forecast"
	salessvc "github.com/PrathyushaPonnala/sales-prediction/internal/services/sales"
	"github.com/PrathyushaPonnala/sales-prediction/internal/workers"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (Postgres, optional Redis, artifact storage)
	PG        *pgclient.Client
	Redis     *redisclient.Client
	Artifacts artifacts.Store

	// Global model artifacts (resolved once at startup)
	Models *forecast.ResolvedModels

	// Domain Layer - Repositories
	Repos *Repositories

	// Forecast pipeline
	Forecast *ForecastComponents

	// Domain Layer - Services
	Services *Services

	// Application Layer
	Application *Application

	// Background Processing
	Background *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups all domain repositories
type Repositories struct {
	Sales  sales.Repository
	Metric model.MetricRepository
}

// ForecastComponents groups the per-product forecasting pipeline
type ForecastComponents struct {
	Locks  forecast.Locker
	Cache  *forecast.ModelCache
	Saver  *workers.ModelSaver
	Engine *forecast.Engine
}

// Services groups all domain services
type Services struct {
	Sales *salessvc.Service
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
	SalesHandler  *salesapi.Handler
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{},
		Forecast:    &ForecastComponents{},
		Services:    &Services{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitModels()
	c.MustInitRepositories()
	c.MustInitForecast()
	c.MustInitServices()
	c.MustInitApplication()
	c.MustInitBackground()
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	// Background model persistence
	c.Forecast.Saver.Start()

	// Periodic forecast refresh
	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	// Start HTTP server
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	// Cancel application context to signal all components to stop
	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Application.HTTPServer,
		c.Background.WorkerScheduler,
		c.Forecast.Saver,
		c.Models,
		c.PG,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}
