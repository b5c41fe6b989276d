package database

import (
	"context"
	"database/sql"

	"github.com/xavierca1/leadbridge/internal/entity"
)

type CredentialRepository struct {
	DB *sql.DB
}

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{DB: db}
}

// Save upserts the credential set for the account: one row per
// account_id, tokens replaced wholesale on every refresh.
func (r *CredentialRepository) Save(ctx context.Context, cred *entity.OAuthCredential) error {
	query := `
		INSERT INTO fub_oauth_credentials (account_id, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (account_id)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`
	_, err := r.DB.ExecContext(ctx, query, cred.AccountID, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt)
	return err
}

func (r *CredentialRepository) Find(ctx context.Context) (*entity.OAuthCredential, error) {
	query := `
		SELECT account_id, access_token, refresh_token, expires_at, updated_at
		FROM fub_oauth_credentials
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var cred entity.OAuthCredential
	err := r.DB.QueryRowContext(ctx, query).Scan(
		&cred.AccountID, &cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt, &cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *CredentialRepository) Delete(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM fub_oauth_credentials`)
	return err
}
