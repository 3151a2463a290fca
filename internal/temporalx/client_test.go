package temporalx

import (
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	c, err := NewClient(nil, Config{})
	if err != nil || c != nil {
		t.Fatalf("expected nil client, got %v %v", c, err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	t.Setenv("TEMPORAL_TASK_QUEUE", "")
	for _, k := range []string{"TEMPORAL_AUTO_REGISTER_NAMESPACE", "TEMPORAL_NAMESPACE_RETENTION_DAYS", "TEMPORAL_WORKER_CONCURRENCY", "TEMPORAL_CLIENT_CERT_PATH", "TEMPORAL_CLIENT_KEY_PATH", "TEMPORAL_CLIENT_CA_PATH"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	if cfg.Namespace != "fraudguard" || cfg.TaskQueue != "fraudguard-dispatch" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RetentionDays != 7 || cfg.WorkerConcurrency != 4 || cfg.AutoRegisterNamespace {
		t.Fatalf("unexpected knobs: %+v", cfg)
	}
	if cfg.UsesTLS() {
		t.Fatalf("no cert paths set, expected plain transport")
	}
}

func TestConfigUsesTLSWithCA(t *testing.T) {
	if !(Config{ClientCAPath: "/etc/temporal/ca.pem"}).UsesTLS() {
		t.Fatalf("CA path alone should enable TLS")
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("unavailable should retry")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("permission denied should not retry")
	}
}

func TestClampBackoffCaps(t *testing.T) {
	if got := clampBackoff(time.Second, 3*time.Second, 5); got != 3*time.Second {
		t.Fatalf("got %v", got)
	}
}
