package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the fingerprint window with Redis so the guard
// holds across processes. SET NX with the window as TTL does both the
// check and the record in one round trip.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Seen(ctx context.Context, fp string, window time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, "fp:"+fp, 1, window).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}
