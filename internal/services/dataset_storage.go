package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fraudguard-backend/internal/platform/gcp"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

// StoredFile names an uploaded dataset in storage. Key is stable and relative;
// Location is what the ML worker resolves (an absolute path or gs:// URI).
type StoredFile struct {
	Key      string
	Location string
	Size     int64
}

type DatasetStorage interface {
	Store(ctx context.Context, originalName string, r io.Reader, contentType string) (*StoredFile, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// datasetKey builds datasets/YYYY/MM/<uuid>.<ext>.
func datasetKey(now time.Time, originalName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if ext == "" {
		ext = "csv"
	}
	return path.Join("datasets", now.UTC().Format("2006"), now.UTC().Format("01"), uuid.NewString()+"."+ext)
}

type localDatasetStorage struct {
	log  *logger.Logger
	root string
}

func NewLocalDatasetStorage(log *logger.Logger, dir string) (DatasetStorage, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "storage"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &localDatasetStorage{
		log:  log.With("service", "DatasetStorage", "mode", "local"),
		root: abs,
	}, nil
}

func (s *localDatasetStorage) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *localDatasetStorage) Store(ctx context.Context, originalName string, r io.Reader, contentType string) (*StoredFile, error) {
	key := datasetKey(time.Now(), originalName)
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("create dataset dir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("create dataset file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return nil, fmt.Errorf("write dataset file: %w", err)
	}
	return &StoredFile{Key: key, Location: full, Size: n}, nil
}

func (s *localDatasetStorage) Delete(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete dataset file: %w", err)
	}
	return nil
}

func (s *localDatasetStorage) Close() error { return nil }

type bucketDatasetStorage struct {
	log    *logger.Logger
	bucket gcp.Bucket
}

func NewBucketDatasetStorage(log *logger.Logger, bucket gcp.Bucket) DatasetStorage {
	return &bucketDatasetStorage{
		log:    log.With("service", "DatasetStorage", "mode", "gcs"),
		bucket: bucket,
	}
}

func (s *bucketDatasetStorage) Store(ctx context.Context, originalName string, r io.Reader, contentType string) (*StoredFile, error) {
	key := datasetKey(time.Now(), originalName)
	if contentType == "" {
		contentType = "text/csv"
	}
	n, err := s.bucket.Upload(ctx, key, r, contentType)
	if err != nil {
		return nil, err
	}
	return &StoredFile{Key: key, Location: s.bucket.URI(key), Size: n}, nil
}

func (s *bucketDatasetStorage) Delete(ctx context.Context, key string) error {
	return s.bucket.Delete(ctx, key)
}

func (s *bucketDatasetStorage) Close() error { return s.bucket.Close() }
