package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"submissionportal/pkg/logging"
)

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// AccountKey is the cache key of the serialized account view.
func AccountKey(accountId uuid.UUID) string {
	return "student:" + accountId.String()
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logWarn(ctx, "cache get failed", key, err)
		}
		return nil, false
	}
	return val, true
}

func (r *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if err := r.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		logWarn(ctx, "cache set failed", key, err)
	}
}

func (r *RedisCache) Delete(ctx context.Context, key string) {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logWarn(ctx, "cache delete failed", key, err)
	}
}

func logWarn(ctx context.Context, msg, key string, err error) {
	if logger, ok := logging.GetFromContext(ctx); ok {
		logger.Warn(ctx, msg, zap.String("key", key), zap.Error(err))
	}
}

// Noop is used when REDIS_URL is empty.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (Noop) Set(context.Context, string, []byte, time.Duration) {}
func (Noop) Delete(context.Context, string)                     {}
