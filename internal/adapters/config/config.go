package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Storage       StorageConfig
	Forecast      ForecastConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"sales-prediction"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ServerConfig struct {
	Port int `envconfig:"PORT" default:"8080"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig is optional. When no host is set the service falls back to
// in-process locking, which is only safe for single-replica deployments.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// StorageConfig selects the artifact storage backend. "local" reads model
// artifacts from LocalDir, "azure" from a blob container.
type StorageConfig struct {
	Backend        string `envconfig:"STORAGE_BACKEND" default:"local"`
	LocalDir       string `envconfig:"STORAGE_LOCAL_DIR" default:"./ml_bin"`
	AzureConnStr   string `envconfig:"AZURE_STORAGE_CONNECTION_STRING"`
	AzureContainer string `envconfig:"AZURE_STORAGE_CONTAINER" default:"models"`
}

// ForecastConfig tunes the live forecast path
type ForecastConfig struct {
	// Token bucket for POST /sales/forecast/live; a refit per call is expensive
	LiveRatePerMinute int `envconfig:"FORECAST_LIVE_RATE_PER_MINUTE" default:"30"`
	LiveRateBurst     int `envconfig:"FORECAST_LIVE_RATE_BURST" default:"5"`

	// Background model persistence
	SaveQueueSize int           `envconfig:"FORECAST_SAVE_QUEUE_SIZE" default:"64"`
	SaveTimeout   time.Duration `envconfig:"FORECAST_SAVE_TIMEOUT" default:"30s"`

	// Per-product lock; TTL bounds how long a crashed holder can block a product
	LockTTL time.Duration `envconfig:"FORECAST_LOCK_TTL" default:"2m"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains settings for background workers
type WorkerConfig struct {
	// Forecast refresher re-runs the live forecast path for products whose
	// persisted forecast is missing or older than MaxAge
	RefreshEnabled  bool          `envconfig:"WORKER_FORECAST_REFRESH_ENABLED" default:"true"`
	RefreshInterval time.Duration `envconfig:"WORKER_FORECAST_REFRESH_INTERVAL" default:"12h"`
	RefreshMaxAge   time.Duration `envconfig:"WORKER_FORECAST_REFRESH_MAX_AGE" default:"168h"`
	RefreshBatch    int           `envconfig:"WORKER_FORECAST_REFRESH_BATCH" default:"25"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
