package temporalx

import (
	"github.com/yungbote/fraudguard-backend/internal/platform/envutil"
)

const (
	defaultNamespace = "fraudguard"
	defaultTaskQueue = "fraudguard-dispatch"
)

// Config is read from TEMPORAL_* env vars. An empty Address disables Temporal.
type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	// AutoRegisterNamespace creates Namespace on first connect. Self-hosted only.
	AutoRegisterNamespace bool
	RetentionDays         int

	// WorkerConcurrency caps concurrent dispatch activities per worker.
	WorkerConcurrency int

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", defaultNamespace),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", defaultTaskQueue),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		RetentionDays:         envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7),
		WorkerConcurrency:     envutil.Int("TEMPORAL_WORKER_CONCURRENCY", 4),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),
	}
}

// UsesTLS reports whether any client certificate material is configured.
func (c Config) UsesTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
