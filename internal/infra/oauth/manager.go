package oauth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/xavierca1/leadbridge/internal/entity"
	"github.com/xavierca1/leadbridge/internal/infra/integration/backend"
)

// ErrNotConnected means there is no usable FUB credential: nothing
// stored, or the stored token expired and could not be refreshed.
// Callers treat it as "not connected", not as a transient fault.
var ErrNotConnected = errors.New("fub account is not connected")

// ErrStateMismatch rejects an authorization callback whose state nonce
// is missing, stale or does not match the one we issued.
var ErrStateMismatch = errors.New("oauth state mismatch")

const (
	// Tokens are treated as expired this long before actual expiry.
	expiryBuffer = 5 * time.Minute

	sessionTokenTTL = 10 * time.Minute
	disconnectTTL   = 30 * time.Second
)

// AccountResolver looks up the FUB account id for a fresh token when
// no account is known yet. The FUB client implements it.
type AccountResolver interface {
	WhoAmI(ctx context.Context, accessToken string) (string, error)
}

// TokenBackup mirrors token mutations to the licensing backend. Best
// effort: a backup failure is logged, never propagated, because the
// local store stays authoritative. The backend copy doubles as a
// recovery source when the local refresh token has gone stale.
type TokenBackup interface {
	SaveTokens(ctx context.Context, accountID, accessToken, refreshToken string, expiresAt time.Time) error
	GetTokens(ctx context.Context, accountID string) (*backend.StoredTokens, error)
}

// Manager owns the access/refresh token lifecycle for the one
// connected FUB account.
type Manager struct {
	cfg      *oauth2.Config
	store    entity.CredentialRepositoryInterface
	resolver AccountResolver
	backup   TokenBackup
	session  *sessionCache
	http     *http.Client
}

func NewManager(clientID, clientSecret, authURL, tokenURL, redirectURL string, store entity.CredentialRepositoryInterface, resolver AccountResolver, backup TokenBackup) *Manager {
	return &Manager{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
				// FUB's token endpoint wants HTTP Basic auth of
				// client_id:client_secret.
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		store:    store,
		resolver: resolver,
		backup:   backup,
		session:  newSessionCache(),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// BeginAuthorization issues the authorization URL with a fresh state
// nonce. The nonce must come back unchanged on the callback.
func (m *Manager) BeginAuthorization(ctx context.Context) (string, error) {
	state := uuid.New().String()
	m.session.setState(state)
	return m.cfg.AuthCodeURL(state), nil
}

// CompleteAuthorization exchanges the authorization code for tokens
// and persists them keyed by the FUB account id. A bad state is a hard
// failure with no token issuance.
func (m *Manager) CompleteAuthorization(ctx context.Context, code, state string) (*entity.OAuthCredential, error) {
	if !m.session.takeState(state) {
		return nil, ErrStateMismatch
	}

	tok, err := m.cfg.Exchange(m.clientCtx(ctx), code)
	if err != nil {
		return nil, err
	}

	accountID := ""
	if existing, _ := m.store.Find(ctx); existing != nil {
		accountID = existing.AccountID
	}
	if accountID == "" {
		accountID, err = m.resolver.WhoAmI(ctx, tok.AccessToken)
		if err != nil {
			return nil, err
		}
	}

	cred := &entity.OAuthCredential{
		AccountID:    accountID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		UpdatedAt:    time.Now(),
	}
	if err := m.store.Save(ctx, cred); err != nil {
		return nil, err
	}
	m.session.setToken(cred)
	m.backupTokens(ctx, cred)

	log.Printf("✅ FUB account %s connected", accountID)
	return cred, nil
}

// ValidToken returns a usable access token, refreshing transparently
// when the stored one is inside the expiry buffer. ErrNotConnected
// when there is nothing to refresh with or the refresh fails.
func (m *Manager) ValidToken(ctx context.Context) (string, error) {
	cred, err := m.current(ctx)
	if err != nil {
		return "", err
	}

	if !cred.ExpiresWithin(expiryBuffer) {
		return cred.AccessToken, nil
	}

	refreshed, err := m.refresh(ctx, cred)
	if err != nil {
		log.Printf("⚠️ token refresh failed: %v", err)
		return "", ErrNotConnected
	}
	return refreshed.AccessToken, nil
}

// ConnectedAccount returns the connected account id without touching
// the token.
func (m *Manager) ConnectedAccount(ctx context.Context) (string, error) {
	cred, err := m.current(ctx)
	if err != nil {
		return "", err
	}
	return cred.AccountID, nil
}

// Refresh forces a refresh of the stored credential. On failure the
// prior tokens stay untouched so a transient network fault never
// forces a redundant re-authorization.
func (m *Manager) Refresh(ctx context.Context) error {
	cred, err := m.current(ctx)
	if err != nil {
		return err
	}
	_, err = m.refresh(ctx, cred)
	return err
}

// AuthenticatedCall wraps ValidToken plus the HTTP call. A 401 answer
// triggers exactly one forced refresh-and-retry; a second consecutive
// 401 is surfaced, not retried, so a CRM that always rejects cannot
// loop us.
func (m *Manager) AuthenticatedCall(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	token, err := m.ValidToken(ctx)
	if err != nil {
		return 0, nil, err
	}

	var status int
	var respBody []byte
	for attempt := 0; attempt < 2; attempt++ {
		status, respBody, err = m.do(ctx, method, url, body, token)
		if err != nil {
			return 0, nil, err
		}
		if status != http.StatusUnauthorized || attempt == 1 {
			return status, respBody, nil
		}

		cred, rerr := m.current(ctx)
		if rerr != nil {
			return status, respBody, nil
		}
		refreshed, rerr := m.refresh(ctx, cred)
		if rerr != nil {
			// Surface the 401; the caller decides what failure means.
			return status, respBody, nil
		}
		token = refreshed.AccessToken
	}
	return status, respBody, nil
}

// Disconnect clears all stored credentials and the session cache, and
// marks the account disconnected for a short while so stale cached
// reads cannot make it look connected again.
func (m *Manager) Disconnect(ctx context.Context) error {
	if err := m.store.Delete(ctx); err != nil {
		return err
	}
	m.session.clear()
	m.session.markDisconnected(disconnectTTL)
	log.Printf("FUB account disconnected")
	return nil
}

func (m *Manager) current(ctx context.Context) (*entity.OAuthCredential, error) {
	if m.session.disconnected() {
		return nil, ErrNotConnected
	}
	if cred := m.session.token(sessionTokenTTL); cred != nil {
		return cred, nil
	}

	cred, err := m.store.Find(ctx)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotConnected
	}
	return cred, nil
}

func (m *Manager) refresh(ctx context.Context, cred *entity.OAuthCredential) (*entity.OAuthCredential, error) {
	if cred.RefreshToken == "" {
		return nil, ErrNotConnected
	}

	// A token carrying only the refresh token forces the token source
	// to hit the token endpoint.
	src := m.cfg.TokenSource(m.clientCtx(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		if restored := m.restoreFromBackup(ctx, cred); restored != nil {
			return restored, nil
		}
		return nil, err
	}

	updated := &entity.OAuthCredential{
		AccountID:    cred.AccountID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		UpdatedAt:    time.Now(),
	}
	if updated.RefreshToken == "" {
		updated.RefreshToken = cred.RefreshToken
	}

	if err := m.store.Save(ctx, updated); err != nil {
		return nil, err
	}
	m.session.setToken(updated)
	m.backupTokens(ctx, updated)
	return updated, nil
}

// restoreFromBackup pulls the backend's token copy after a rejected
// refresh grant. The shared proxy can rotate tokens on the backend
// while our stored refresh token goes stale; a differing backend copy
// is the live pair, the same copy is just our own mirror.
func (m *Manager) restoreFromBackup(ctx context.Context, cred *entity.OAuthCredential) *entity.OAuthCredential {
	if m.backup == nil {
		return nil
	}

	stored, err := m.backup.GetTokens(ctx, cred.AccountID)
	if err != nil || stored == nil || stored.AccessToken == "" || stored.AccessToken == cred.AccessToken {
		return nil
	}

	restored := &entity.OAuthCredential{
		AccountID:    cred.AccountID,
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		ExpiresAt:    stored.ExpiresAt,
		UpdatedAt:    time.Now(),
	}
	if restored.RefreshToken == "" {
		restored.RefreshToken = cred.RefreshToken
	}

	if err := m.store.Save(ctx, restored); err != nil {
		return nil
	}
	m.session.setToken(restored)
	log.Printf("♻️ tokens for account %s restored from backend", cred.AccountID)
	return restored
}

func (m *Manager) backupTokens(ctx context.Context, cred *entity.OAuthCredential) {
	if m.backup == nil {
		return
	}
	if err := m.backup.SaveTokens(ctx, cred.AccountID, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt); err != nil {
		log.Printf("⚠️ token backup to backend failed: %v", err)
	}
}

func (m *Manager) clientCtx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.http)
}

func (m *Manager) do(ctx context.Context, method, url string, body []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, nil
}
