package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/fraudguard-backend/internal/data/db"
	"github.com/yungbote/fraudguard-backend/internal/observability"
	"github.com/yungbote/fraudguard-backend/internal/platform/envutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/gcp"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/platform/mlclient"
	"github.com/yungbote/fraudguard-backend/internal/temporalx"
)

const ServiceName = "fraudguard"

const (
	DispatchBackendOutbox   = "outbox"
	DispatchBackendTemporal = "temporal"
)

type DispatchSettings struct {
	Backend      string
	MaxAttempts  int
	Backoff      time.Duration
	TaskTimeout  time.Duration
	Concurrency  int
	PollInterval time.Duration
	// RequestExplanations enqueues a dataset.explain task after results land.
	RequestExplanations bool
}

type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	AutoMigrate   bool

	DB       db.Config
	ML       mlclient.Config
	Dispatch DispatchSettings
	Storage  gcp.ObjectStorageConfig

	RedisAddr string
	CacheTTL  time.Duration

	JWTSecretKey string
	CORSOrigins  []string

	Temporal temporalx.Config
	Otel     observability.OtelConfig
}

func LoadConfig(log *logger.Logger) (Config, error) {
	port := envutil.String("PORT", "8080")
	cfg := Config{
		Port:          port,
		Env:           envutil.String("APP_ENV", "development"),
		PublicBaseURL: strings.TrimRight(envutil.String("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		AutoMigrate:   envutil.Bool("DB_AUTO_MIGRATE", true),
		DB: db.Config{
			Driver:     envutil.String("DB_DRIVER", db.DriverPostgres),
			Host:       envutil.String("POSTGRES_HOST", "localhost"),
			Port:       envutil.String("POSTGRES_PORT", "5432"),
			User:       envutil.String("POSTGRES_USER", "postgres"),
			Password:   envutil.String("POSTGRES_PASSWORD", ""),
			Name:       envutil.String("POSTGRES_NAME", "fraudguard"),
			SQLitePath: envutil.String("SQLITE_PATH", "fraudguard.db"),
		},
		ML: mlclient.Config{
			BaseURL: envutil.String("ML_SERVICE_URL", "http://localhost:5000"),
			Secret:  envutil.String("ML_SERVICE_SECRET", ""),
			Timeout: envutil.Seconds("ML_SERVICE_TIMEOUT_SECONDS", 30),
		},
		Dispatch: DispatchSettings{
			Backend:             strings.ToLower(envutil.String("DISPATCH_BACKEND", DispatchBackendOutbox)),
			MaxAttempts:         envutil.Int("DISPATCH_MAX_ATTEMPTS", 3),
			Backoff:             envutil.Seconds("DISPATCH_BACKOFF_SECONDS", 60),
			TaskTimeout:         envutil.Seconds("DISPATCH_TASK_TIMEOUT_SECONDS", 600),
			Concurrency:         envutil.Int("WORKER_CONCURRENCY", 2),
			PollInterval:        time.Duration(envutil.Int("DISPATCH_POLL_MS", 1000)) * time.Millisecond,
			RequestExplanations: envutil.Bool("ML_REQUEST_EXPLANATIONS", true),
		},
		Storage: gcp.ObjectStorageConfig{
			Bucket:       envutil.String("GCS_BUCKET_NAME", ""),
			EmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
			LocalDir:     envutil.String("STORAGE_LOCAL_DIR", "storage/datasets"),
			Credentials:  envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", envutil.String("GOOGLE_APPLICATION_CREDENTIALS", "")),
		},
		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		CacheTTL:     envutil.Seconds("SUMMARY_CACHE_TTL_SECONDS", 60),
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		CORSOrigins:  envutil.List("CORS_ALLOWED_ORIGINS"),
		Temporal:     temporalx.LoadConfig(),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", ServiceName),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 1),
		},
	}

	mode, err := gcp.ParseObjectStorageMode(envutil.String("STORAGE_MODE", ""))
	if err != nil {
		return cfg, err
	}
	cfg.Storage.Mode = mode
	if err := gcp.ValidateObjectStorageConfig(cfg.Storage); err != nil {
		return cfg, err
	}

	switch cfg.Dispatch.Backend {
	case DispatchBackendOutbox:
	case DispatchBackendTemporal:
		if cfg.Temporal.Address == "" {
			return cfg, fmt.Errorf("DISPATCH_BACKEND=temporal requires TEMPORAL_ADDRESS")
		}
	default:
		return cfg, fmt.Errorf("invalid DISPATCH_BACKEND=%q (allowed: %q, %q)",
			cfg.Dispatch.Backend, DispatchBackendOutbox, DispatchBackendTemporal)
	}
	if cfg.Dispatch.MaxAttempts < 1 {
		cfg.Dispatch.MaxAttempts = 1
	}

	if log != nil {
		if cfg.ML.Secret == "" {
			log.Warn("ML_SERVICE_SECRET not set; ML callbacks will be rejected")
		}
		if cfg.JWTSecretKey == "" {
			log.Warn("JWT_SECRET_KEY not set; dashboard API will reject every token")
		}
	}
	return cfg, nil
}

func (c Config) Addr() string { return ":" + c.Port }
