package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-process fingerprint window. Expired
// entries are evicted lazily on each check; no background sweep.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time)}
}

func (s *MemoryStore) Seen(ctx context.Context, fp string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, t := range s.seen {
		if now.Sub(t) > window {
			delete(s.seen, k)
		}
	}

	if t, ok := s.seen[fp]; ok && now.Sub(t) <= window {
		return true, nil
	}
	s.seen[fp] = now
	return false, nil
}
