package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeLocal       ObjectStorageMode = "local"
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

type ObjectStorageConfig struct {
	Mode         ObjectStorageMode
	Bucket       string
	EmulatorHost string
	LocalDir     string
	// Credentials is inline service account JSON or a key file path.
	// Empty falls back to application default credentials.
	Credentials string
}

func ParseObjectStorageMode(raw string) (ObjectStorageMode, error) {
	mode := ObjectStorageMode(strings.ToLower(strings.TrimSpace(raw)))
	if mode == "" {
		return ObjectStorageModeLocal, nil
	}
	switch mode {
	case ObjectStorageModeLocal, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid STORAGE_MODE=%q (allowed: %q, %q, %q)",
			raw, ObjectStorageModeLocal, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator)
	}
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

func ValidateObjectStorageConfig(cfg ObjectStorageConfig) error {
	switch cfg.Mode {
	case ObjectStorageModeLocal:
		if strings.TrimSpace(cfg.LocalDir) == "" {
			return fmt.Errorf("STORAGE_MODE=local requires STORAGE_LOCAL_DIR")
		}
		return nil
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
		if strings.TrimSpace(cfg.Bucket) == "" {
			return fmt.Errorf("STORAGE_MODE=%s requires GCS_BUCKET_NAME", cfg.Mode)
		}
		if cfg.Mode == ObjectStorageModeGCSEmulator {
			host := strings.TrimSpace(cfg.EmulatorHost)
			if host == "" {
				return fmt.Errorf("STORAGE_MODE=%s requires STORAGE_EMULATOR_HOST", cfg.Mode)
			}
			parsed, err := url.Parse(host)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return fmt.Errorf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://localhost:4443", host)
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid object storage mode %q", cfg.Mode)
	}
}
