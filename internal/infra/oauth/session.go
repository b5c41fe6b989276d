package oauth

import (
	"sync"
	"time"

	"github.com/xavierca1/leadbridge/internal/entity"
)

// sessionCache is the first tier of token storage: a short-TTL
// in-process holder that spares a round trip for the remainder of a
// setup flow. The durable repository stays authoritative; this cache
// must never outlive its TTL.
type sessionCache struct {
	mu sync.Mutex

	state   string
	stateAt time.Time

	cred   *entity.OAuthCredential
	credAt time.Time

	disconnectedUntil time.Time
}

const stateTTL = 10 * time.Minute

func newSessionCache() *sessionCache {
	return &sessionCache{}
}

func (s *sessionCache) setState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.stateAt = time.Now()
}

// takeState validates and consumes the pending authorization state.
// A missing, stale or mismatched state is a hard failure upstream.
func (s *sessionCache) takeState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := state != "" && state == s.state && time.Since(s.stateAt) < stateTTL
	s.state = ""
	return ok
}

func (s *sessionCache) token(ttl time.Duration) *entity.OAuthCredential {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred == nil || time.Since(s.credAt) > ttl {
		return nil
	}
	return s.cred
}

func (s *sessionCache) setToken(cred *entity.OAuthCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
	s.credAt = time.Now()
	s.disconnectedUntil = time.Time{}
}

func (s *sessionCache) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	s.state = ""
}

// markDisconnected sets the short-lived marker that keeps stale cached
// reads from resurrecting a connected appearance right after a
// disconnect.
func (s *sessionCache) markDisconnected(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectedUntil = time.Now().Add(d)
}

func (s *sessionCache) disconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.disconnectedUntil)
}
