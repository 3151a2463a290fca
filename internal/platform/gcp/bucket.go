package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

// Bucket stores dataset objects in a single GCS bucket.
type Bucket interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	Delete(ctx context.Context, key string) error
	// URI is the address a worker with bucket access resolves the object by.
	URI(key string) string
	Close() error
}

type bucket struct {
	log    *logger.Logger
	client *storage.Client
	name   string
}

func NewBucket(ctx context.Context, log *logger.Logger, cfg ObjectStorageConfig) (Bucket, error) {
	if err := ValidateObjectStorageConfig(cfg); err != nil {
		return nil, err
	}
	var (
		client *storage.Client
		err    error
	)
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := credentialOptions(cfg.Credentials)
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		client, err = storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"))
		client, err = storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, fmt.Errorf("object storage mode %q is not a bucket mode", cfg.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog := log.With("service", "DatasetBucket")
	serviceLog.Info("Object storage initialized", "mode", cfg.Mode, "bucket", cfg.Bucket, "emulator_host", cfg.EmulatorHost)
	return &bucket{log: serviceLog, client: client, name: cfg.Bucket}, nil
}

func (b *bucket) Upload(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(b.name).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return n, nil
}

func (b *bucket) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := b.client.Bucket(b.name).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, b.name, err)
	}
	return nil
}

func (b *bucket) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", b.name, strings.TrimLeft(key, "/"))
}

func (b *bucket) Close() error {
	return b.client.Close()
}
