package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a shared fixed-window counter for multi-instance
// deployments. Keys carry the window bucket so INCR and expiry stay cheap.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (r *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	bucket := time.Now().UnixMilli() / window.Milliseconds()
	k := fmt.Sprintf("folio:rate_limit:%s:%d", key, bucket)

	count, err := r.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// Extra second so a straddling read never sees a vanished key.
		r.rdb.PExpire(ctx, k, window+time.Second)
	}
	return count, nil
}
