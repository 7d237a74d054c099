package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Register     RegisterConfig
	Central      CentralConfig
	Sync         SyncConfig
	JWT          JWTConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CALDERA_APP_ENV" required:"true"`
	Port         string `envconfig:"CALDERA_APP_PORT" default:"7373"`
	LogLevel     string `envconfig:"CALDERA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CALDERA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CALDERA_SERVICE_KIND" default:"agent"`
}

type DBConfig struct {
	DSN    string `envconfig:"CALDERA_DB_DSN" default:"file:register-edge.db?_journal_mode=WAL"`
	Driver string `envconfig:"CALDERA_DB_DRIVER" default:"sqlite"`

	MaxOpenConns    int           `envconfig:"CALDERA_DB_MAX_OPEN_CONNS" default:"1"`
	MaxIdleConns    int           `envconfig:"CALDERA_DB_MAX_IDLE_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `envconfig:"CALDERA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CALDERA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

func (db DBConfig) validate() error {
	switch db.Driver {
	case DBDriverSQLite, DBDriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver %q (expected %q or %q)", db.Driver, DBDriverSQLite, DBDriverPostgres)
	}
	if db.DSN == "" {
		return fmt.Errorf("CALDERA_DB_DSN is required")
	}
	return nil
}

// RegisterConfig identifies this register within its store.
type RegisterConfig struct {
	ID      string `envconfig:"CALDERA_REGISTER_ID" required:"true"`
	StoreID string `envconfig:"CALDERA_STORE_ID" required:"true"`
}

// CentralConfig points the agent at the central sales API.
type CentralConfig struct {
	BaseURL        string        `envconfig:"CALDERA_CENTRAL_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"CALDERA_CENTRAL_REQUEST_TIMEOUT" default:"15s"`
	HealthPath     string        `envconfig:"CALDERA_CENTRAL_HEALTH_PATH" default:"/healthz"`
}

type SyncConfig struct {
	PollIntervalMS    int           `envconfig:"CALDERA_SYNC_POLL_MS" default:"2000"`
	BackoffBaseMS     int           `envconfig:"CALDERA_SYNC_BACKOFF_BASE_MS" default:"1000"`
	BackoffMaxMS      int           `envconfig:"CALDERA_SYNC_BACKOFF_MAX_MS" default:"60000"`
	JitterMS          int           `envconfig:"CALDERA_SYNC_JITTER_MS" default:"250"`
	ProbeIntervalMS   int           `envconfig:"CALDERA_SYNC_PROBE_MS" default:"5000"`
	StalenessWindow   time.Duration `envconfig:"CALDERA_SYNC_STALENESS_WINDOW" default:"24h"`
	StaleSweepEveryMS int           `envconfig:"CALDERA_SYNC_STALE_SWEEP_MS" default:"300000"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CALDERA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CALDERA_JWT_ISSUER" default:"register-edge"`
	ExpirationMinutes int    `envconfig:"CALDERA_JWT_EXPIRATION_MINUTES" default:"5"`
}

// RedisConfig is only consumed by the central stub's idempotency store.
type RedisConfig struct {
	URL            string        `envconfig:"CALDERA_REDIS_URL"`
	Address        string        `envconfig:"CALDERA_REDIS_ADDR"`
	Password       string        `envconfig:"CALDERA_REDIS_PASSWORD"`
	DB             int           `envconfig:"CALDERA_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"CALDERA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"CALDERA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"CALDERA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"CALDERA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"CALDERA_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"CALDERA_REDIS_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CALDERA_AUTO_MIGRATE" default:"false"`
}

// PollInterval returns the drain poll interval as a duration.
func (s SyncConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

// BackoffBase returns the first retry delay for a failed entry.
func (s SyncConfig) BackoffBase() time.Duration {
	return time.Duration(s.BackoffBaseMS) * time.Millisecond
}

// BackoffMax caps the retry delay growth.
func (s SyncConfig) BackoffMax() time.Duration {
	return time.Duration(s.BackoffMaxMS) * time.Millisecond
}

// Jitter returns the random window added to sleeps between drain passes.
func (s SyncConfig) Jitter() time.Duration {
	return time.Duration(s.JitterMS) * time.Millisecond
}

// ProbeInterval returns how often the connectivity prober pings central.
func (s SyncConfig) ProbeInterval() time.Duration {
	return time.Duration(s.ProbeIntervalMS) * time.Millisecond
}

// StaleSweepEvery returns how often the staleness review job runs.
func (s SyncConfig) StaleSweepEvery() time.Duration {
	return time.Duration(s.StaleSweepEveryMS) * time.Millisecond
}
