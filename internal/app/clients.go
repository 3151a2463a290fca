package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/fraudguard-backend/internal/platform/gcp"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/platform/mlclient"
	"github.com/yungbote/fraudguard-backend/internal/services"
	"github.com/yungbote/fraudguard-backend/internal/temporalx"
)

type Clients struct {
	ML       mlclient.Client
	Cache    services.SummaryCache
	Storage  services.DatasetStorage
	Bucket   gcp.Bucket
	Temporal temporalsdkclient.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	ml, err := mlclient.New(log, cfg.ML)
	if err != nil {
		return out, fmt.Errorf("init ml client: %w", err)
	}
	out.ML = ml

	// Redis
	out.Cache = services.NewNoopSummaryCache()
	if cfg.RedisAddr != "" {
		cache, err := services.NewRedisSummaryCache(log, cfg.RedisAddr, ServiceName+":summary:", cfg.CacheTTL)
		if err != nil {
			return out, fmt.Errorf("init summary cache: %w", err)
		}
		out.Cache = cache
	}

	// Dataset storage
	if cfg.Storage.Mode == gcp.ObjectStorageModeLocal {
		st, err := services.NewLocalDatasetStorage(log, cfg.Storage.LocalDir)
		if err != nil {
			return out, fmt.Errorf("init local storage: %w", err)
		}
		out.Storage = st
	} else {
		bucket, err := gcp.NewBucket(ctx, log, cfg.Storage)
		if err != nil {
			return out, fmt.Errorf("init bucket: %w", err)
		}
		out.Bucket = bucket
		out.Storage = services.NewBucketDatasetStorage(log, bucket)
	}

	// Temporal
	if cfg.Dispatch.Backend == DispatchBackendTemporal {
		tc, err := temporalx.NewClient(log, cfg.Temporal)
		if err != nil {
			out.Close()
			return out, fmt.Errorf("init temporal client: %w", err)
		}
		out.Temporal = tc
	}
	return out, nil
}

func (c Clients) Close() {
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
}
