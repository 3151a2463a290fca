package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

// SummaryCache memoizes dashboard aggregates. Keys are namespaced under a
// generation counter so one INCR invalidates every cached summary.
type SummaryCache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any)
	Invalidate(ctx context.Context)
	Close() error
}

type redisSummaryCache struct {
	log    *logger.Logger
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSummaryCache(log *logger.Logger, addr string, prefix string, ttl time.Duration) (SummaryCache, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if prefix == "" {
		prefix = "fraudguard:summary"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisSummaryCache(log, rdb, prefix, ttl), nil
}

func newRedisSummaryCache(log *logger.Logger, rdb *redis.Client, prefix string, ttl time.Duration) *redisSummaryCache {
	return &redisSummaryCache{
		log:    log.With("service", "SummaryCache"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *redisSummaryCache) generation(ctx context.Context) string {
	gen, err := c.rdb.Get(ctx, c.prefix+":gen").Result()
	if errors.Is(err, redis.Nil) {
		return "0"
	}
	if err != nil {
		c.log.Debug("summary cache generation read failed", "error", err)
		return ""
	}
	return gen
}

func (c *redisSummaryCache) key(ctx context.Context, key string) string {
	gen := c.generation(ctx)
	if gen == "" {
		return ""
	}
	return c.prefix + ":" + gen + ":" + key
}

func (c *redisSummaryCache) Get(ctx context.Context, key string, dst any) bool {
	k := c.key(ctx, key)
	if k == "" {
		return false
	}
	raw, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("summary cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false
	}
	return true
}

func (c *redisSummaryCache) Set(ctx context.Context, key string, value any) {
	k := c.key(ctx, key)
	if k == "" {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, k, raw, c.ttl).Err(); err != nil {
		c.log.Debug("summary cache set failed", "key", key, "error", err)
	}
}

func (c *redisSummaryCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, c.prefix+":gen").Err(); err != nil {
		c.log.Warn("summary cache invalidate failed", "error", err)
	}
}

func (c *redisSummaryCache) Close() error { return c.rdb.Close() }

type noopSummaryCache struct{}

// NewNoopSummaryCache is used when REDIS_ADDR is unset.
func NewNoopSummaryCache() SummaryCache { return noopSummaryCache{} }

func (noopSummaryCache) Get(context.Context, string, any) bool { return false }
func (noopSummaryCache) Set(context.Context, string, any)      {}
func (noopSummaryCache) Invalidate(context.Context)            {}
func (noopSummaryCache) Close() error                          { return nil }
