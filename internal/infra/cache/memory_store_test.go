package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreSuppressesWithinWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seen, err := store.Seen(ctx, "fp-1", 5*time.Second)
	assert.NoError(t, err)
	assert.False(t, seen)

	seen, err = store.Seen(ctx, "fp-1", 5*time.Second)
	assert.NoError(t, err)
	assert.True(t, seen)

	seen, err = store.Seen(ctx, "fp-2", 5*time.Second)
	assert.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryStoreExpiresAfterWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seen, _ := store.Seen(ctx, "fp-1", 20*time.Millisecond)
	assert.False(t, seen)

	time.Sleep(40 * time.Millisecond)

	seen, _ = store.Seen(ctx, "fp-1", 20*time.Millisecond)
	assert.False(t, seen)
}
