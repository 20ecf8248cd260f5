package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/firmoscope/backend/internal/platform/envutil"
	"github.com/firmoscope/backend/internal/platform/logger"
)

// CountCache memoizes count-service responses keyed by the criteria that
// produced them. A cold or unreachable Redis never fails a request; misses
// and errors both fall through to the count service.
type CountCache interface {
	Get(ctx context.Context, criteria any, out any) bool
	Set(ctx context.Context, criteria any, value any)
	Close() error
}

type redisCountCache struct {
	log *logger.Logger
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCountCache connects to REDIS_ADDR. A missing address is not an
// error; callers get a nil-safe no-op cache via NewNoopCountCache instead.
func NewRedisCountCache(log *logger.Logger) (CountCache, error) {
	cacheLog := log.With("service", "CountCache")

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttlSeconds := envutil.GetEnvAsInt("COUNT_CACHE_TTL_SECONDS", 300, log)
	cacheLog.Info("Redis count cache connected", "addr", addr, "ttl_seconds", ttlSeconds)

	return &redisCountCache{
		log: cacheLog,
		rdb: rdb,
		ttl: time.Duration(ttlSeconds) * time.Second,
	}, nil
}

func (c *redisCountCache) Get(ctx context.Context, criteria any, out any) bool {
	key, err := cacheKey(criteria)
	if err != nil {
		return false
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("Count cache read failed", "error", err)
		}
		return false
	}

	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warn("Count cache entry malformed", "error", err)
		return false
	}
	return true
}

func (c *redisCountCache) Set(ctx context.Context, criteria any, value any) {
	key, err := cacheKey(criteria)
	if err != nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("Count cache write failed", "error", err)
	}
}

func (c *redisCountCache) Close() error {
	return c.rdb.Close()
}

// cacheKey hashes the JSON form of the criteria. Marshal order is stable
// for structs, so equal criteria always hash to the same key.
func cacheKey(criteria any) (string, error) {
	raw, err := json.Marshal(criteria)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return "firmoscope:count:" + hex.EncodeToString(sum[:]), nil
}

type noopCountCache struct{}

// NewNoopCountCache stands in when Redis is not configured.
func NewNoopCountCache() CountCache { return noopCountCache{} }

func (noopCountCache) Get(context.Context, any, any) bool { return false }
func (noopCountCache) Set(context.Context, any, any)      {}
func (noopCountCache) Close() error                       { return nil }
