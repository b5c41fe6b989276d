package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/xavierca1/leadbridge/internal/entity"
	"github.com/xavierca1/leadbridge/internal/infra/oauth"
)

type TokenManager interface {
	BeginAuthorization(ctx context.Context) (string, error)
	CompleteAuthorization(ctx context.Context, code, state string) (*entity.OAuthCredential, error)
	ConnectedAccount(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error
}

type OAuthHandler struct {
	manager TokenManager
}

func NewOAuthHandler(manager TokenManager) *OAuthHandler {
	return &OAuthHandler{manager: manager}
}

type ConnectionStatusResponse struct {
	Connected bool   `json:"connected"`
	AccountID string `json:"account_id,omitempty"`
}

// Authorize hands the admin UI the FUB consent URL. The UI opens it;
// we only mint the state nonce here.
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	url, err := h.manager.BeginAuthorization(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to start authorization",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authorization_url": url})
}

// Callback receives the consent redirect. The state nonce must match
// the one Authorize issued; anything else is rejected without touching
// the token endpoint.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		log.Printf("⚠️ oauth consent denied: %s", errParam)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "authorization was denied",
		})
		return
	}

	cred, err := h.manager.CompleteAuthorization(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		if errors.Is(err, oauth.ErrStateMismatch) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid authorization state",
			})
			return
		}
		log.Printf("❌ oauth code exchange failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "failed to complete authorization",
		})
		return
	}

	writeJSON(w, http.StatusOK, ConnectionStatusResponse{
		Connected: true,
		AccountID: cred.AccountID,
	})
}

// Status reports whether a FUB account is currently connected.
func (h *OAuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.manager.ConnectedAccount(r.Context())
	if err != nil {
		if errors.Is(err, oauth.ErrNotConnected) {
			writeJSON(w, http.StatusOK, ConnectionStatusResponse{Connected: false})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to read connection status",
		})
		return
	}
	writeJSON(w, http.StatusOK, ConnectionStatusResponse{
		Connected: true,
		AccountID: accountID,
	})
}

// Disconnect drops the stored credentials. Leads keep flowing into the
// local delivery log; they just stop reaching FUB until reconnected.
func (h *OAuthHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Disconnect(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to disconnect",
		})
		return
	}
	writeJSON(w, http.StatusOK, ConnectionStatusResponse{Connected: false})
}
