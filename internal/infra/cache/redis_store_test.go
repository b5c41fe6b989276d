package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(rdb), mr
}

func TestRedisStoreSuppressesWithinWindow(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	seen, err := store.Seen(ctx, "abc123", 5*time.Second)
	assert.NoError(t, err)
	assert.False(t, seen)

	seen, err = store.Seen(ctx, "abc123", 5*time.Second)
	assert.NoError(t, err)
	assert.True(t, seen)
}

func TestRedisStoreExpiresAfterWindow(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	seen, _ := store.Seen(ctx, "abc123", 5*time.Second)
	assert.False(t, seen)

	mr.FastForward(6 * time.Second)

	seen, err := store.Seen(ctx, "abc123", 5*time.Second)
	assert.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisStoreErrorWhenDown(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	_, err := store.Seen(context.Background(), "abc123", 5*time.Second)
	assert.Error(t, err)
}
