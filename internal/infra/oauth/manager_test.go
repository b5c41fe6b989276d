package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xavierca1/leadbridge/internal/entity"
	"github.com/xavierca1/leadbridge/internal/infra/integration/backend"
)

type fakeStore struct {
	mu      sync.Mutex
	cred    *entity.OAuthCredential
	saveErr error
}

func (s *fakeStore) Save(ctx context.Context, cred *entity.OAuthCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	copied := *cred
	s.cred = &copied
	return nil
}

func (s *fakeStore) Find(ctx context.Context) (*entity.OAuthCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil, nil
	}
	copied := *s.cred
	return &copied, nil
}

func (s *fakeStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}

type fakeBackup struct {
	stored  *backend.StoredTokens
	getErr  error
	saved   int
	fetched int
}

func (b *fakeBackup) SaveTokens(ctx context.Context, accountID, accessToken, refreshToken string, expiresAt time.Time) error {
	b.saved++
	return nil
}

func (b *fakeBackup) GetTokens(ctx context.Context, accountID string) (*backend.StoredTokens, error) {
	b.fetched++
	return b.stored, b.getErr
}

type fakeResolver struct {
	accountID string
	calls     int
}

func (r *fakeResolver) WhoAmI(ctx context.Context, accessToken string) (string, error) {
	r.calls++
	return r.accountID, nil
}

// tokenServer answers the OAuth token endpoint with a fixed grant.
func tokenServer(t *testing.T, accessToken string, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  accessToken,
			"refresh_token": "refresh-" + accessToken,
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
}

func newTestManager(store *fakeStore, tokenURL string) *Manager {
	return NewManager(
		"client-id", "client-secret",
		"https://example.com/oauth/authorize", tokenURL,
		"https://example.com/oauth/callback",
		store, &fakeResolver{accountID: "acct-1"}, nil,
	)
}

func storedCred(expiresIn time.Duration) *entity.OAuthCredential {
	return &entity.OAuthCredential{
		AccountID:    "acct-1",
		AccessToken:  "tok-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(expiresIn),
		UpdatedAt:    time.Now(),
	}
}

func TestValidTokenOutsideBufferNoRefresh(t *testing.T) {
	hits := 0
	ts := tokenServer(t, "tok-2", &hits)
	defer ts.Close()

	store := &fakeStore{cred: storedCred(400 * time.Second)}
	m := newTestManager(store, ts.URL)

	token, err := m.ValidToken(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, 0, hits)
}

func TestValidTokenInsideBufferRefreshes(t *testing.T) {
	hits := 0
	ts := tokenServer(t, "tok-2", &hits)
	defer ts.Close()

	// 200s until expiry is inside the 5 minute buffer.
	store := &fakeStore{cred: storedCred(200 * time.Second)}
	m := newTestManager(store, ts.URL)

	token, err := m.ValidToken(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, 1, hits)
	assert.Equal(t, "tok-2", store.cred.AccessToken)
	assert.Equal(t, "refresh-tok-2", store.cred.RefreshToken)
}

func TestValidTokenRefreshFailureLeavesStoredTokens(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	store := &fakeStore{cred: storedCred(10 * time.Second)}
	m := newTestManager(store, ts.URL)

	_, err := m.ValidToken(context.Background())

	assert.ErrorIs(t, err, ErrNotConnected)
	// The stored credential is untouched; the operator does not have to
	// re-authorize over a transient refresh fault.
	assert.Equal(t, "tok-1", store.cred.AccessToken)
	assert.Equal(t, "refresh-1", store.cred.RefreshToken)
}

func TestValidTokenRejectedRefreshRestoresFromBackend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	store := &fakeStore{cred: storedCred(10 * time.Second)}
	backup := &fakeBackup{stored: &backend.StoredTokens{
		AccessToken:  "tok-backend",
		RefreshToken: "refresh-backend",
		ExpiresAt:    time.Now().Add(time.Hour),
	}}
	m := NewManager(
		"client-id", "client-secret",
		"https://example.com/oauth/authorize", ts.URL,
		"https://example.com/oauth/callback",
		store, &fakeResolver{accountID: "acct-1"}, backup,
	)

	token, err := m.ValidToken(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, "tok-backend", token)
	assert.Equal(t, 1, backup.fetched)
	assert.Equal(t, "tok-backend", store.cred.AccessToken)
	assert.Equal(t, "refresh-backend", store.cred.RefreshToken)
}

func TestValidTokenStaleBackendCopyStaysDisconnected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	// The backend holds the same access token we do: it is our own
	// mirror, not a recovery source.
	store := &fakeStore{cred: storedCred(10 * time.Second)}
	backup := &fakeBackup{stored: &backend.StoredTokens{
		AccessToken:  "tok-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}}
	m := NewManager(
		"client-id", "client-secret",
		"https://example.com/oauth/authorize", ts.URL,
		"https://example.com/oauth/callback",
		store, &fakeResolver{accountID: "acct-1"}, backup,
	)

	_, err := m.ValidToken(context.Background())

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, "tok-1", store.cred.AccessToken)
}

func TestValidTokenNotConnected(t *testing.T) {
	m := newTestManager(&fakeStore{}, "http://localhost:0")

	_, err := m.ValidToken(context.Background())

	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCompleteAuthorizationRejectsBadState(t *testing.T) {
	hits := 0
	ts := tokenServer(t, "tok-1", &hits)
	defer ts.Close()

	m := newTestManager(&fakeStore{}, ts.URL)
	_, err := m.BeginAuthorization(context.Background())
	assert.NoError(t, err)

	_, err = m.CompleteAuthorization(context.Background(), "code-1", "forged-state")

	assert.ErrorIs(t, err, ErrStateMismatch)
	// The token endpoint must never see the code.
	assert.Equal(t, 0, hits)
}

func TestCompleteAuthorizationStateIsSingleUse(t *testing.T) {
	hits := 0
	ts := tokenServer(t, "tok-1", &hits)
	defer ts.Close()

	m := newTestManager(&fakeStore{}, ts.URL)
	authURL, err := m.BeginAuthorization(context.Background())
	assert.NoError(t, err)

	parsed, err := url.Parse(authURL)
	assert.NoError(t, err)
	state := parsed.Query().Get("state")
	assert.NotEmpty(t, state)

	_, err = m.CompleteAuthorization(context.Background(), "code-1", state)
	assert.NoError(t, err)

	_, err = m.CompleteAuthorization(context.Background(), "code-1", state)
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestCompleteAuthorizationStoresCredential(t *testing.T) {
	hits := 0
	ts := tokenServer(t, "tok-1", &hits)
	defer ts.Close()

	store := &fakeStore{}
	m := newTestManager(store, ts.URL)

	authURL, _ := m.BeginAuthorization(context.Background())
	parsed, _ := url.Parse(authURL)

	cred, err := m.CompleteAuthorization(context.Background(), "code-1", parsed.Query().Get("state"))

	assert.NoError(t, err)
	assert.Equal(t, "acct-1", cred.AccountID)
	assert.Equal(t, "tok-1", cred.AccessToken)
	assert.NotNil(t, store.cred)
	assert.Equal(t, "acct-1", store.cred.AccountID)
}

func TestAuthenticatedCallRetriesOnceOn401(t *testing.T) {
	tokenHits := 0
	ts := tokenServer(t, "tok-2", &tokenHits)
	defer ts.Close()

	var seenTokens []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		seenTokens = append(seenTokens, token)
		if token != "Bearer tok-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	store := &fakeStore{cred: storedCred(time.Hour)}
	m := newTestManager(store, ts.URL)

	status, _, err := m.AuthenticatedCall(context.Background(), http.MethodGet, api.URL, nil)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-2"}, seenTokens)
	assert.Equal(t, 1, tokenHits)
}

func TestAuthenticatedCallSurfacesSecond401(t *testing.T) {
	tokenHits := 0
	ts := tokenServer(t, "tok-2", &tokenHits)
	defer ts.Close()

	apiHits := 0
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiHits++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer api.Close()

	store := &fakeStore{cred: storedCred(time.Hour)}
	m := newTestManager(store, ts.URL)

	status, _, err := m.AuthenticatedCall(context.Background(), http.MethodGet, api.URL, nil)

	// A CRM that keeps rejecting gets exactly two attempts, then the
	// 401 comes back to the caller.
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 2, apiHits)
	assert.Equal(t, 1, tokenHits)
}

func TestDisconnectClearsCredentials(t *testing.T) {
	store := &fakeStore{cred: storedCred(time.Hour)}
	m := newTestManager(store, "http://localhost:0")

	// Warm the session cache, then disconnect.
	_, err := m.ConnectedAccount(context.Background())
	assert.NoError(t, err)

	assert.NoError(t, m.Disconnect(context.Background()))

	_, err = m.ConnectedAccount(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Nil(t, store.cred)
}
