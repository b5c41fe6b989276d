package entity

import (
	"context"
	"time"
)

// OAuthCredential is the token set for one connected FUB account. At
// most one active credential set exists per account_id.
type OAuthCredential struct {
	AccountID    string    `json:"account_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ExpiresWithin reports whether the access token expires inside the
// given safety buffer. A token inside the buffer is treated as
// expired.
func (c *OAuthCredential) ExpiresWithin(buffer time.Duration) bool {
	return time.Until(c.ExpiresAt) <= buffer
}

type CredentialRepositoryInterface interface {
	// Save replaces the credential set for the account (one row per
	// account_id).
	Save(ctx context.Context, cred *OAuthCredential) error

	// Find returns the connected account's credentials, or (nil, nil)
	// when no account is connected.
	Find(ctx context.Context) (*OAuthCredential, error)

	Delete(ctx context.Context) error
}
