package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the licensing backend. All calls are POST-style RPC
// with a fixed API key header; transport failures come back as plain
// errors, distinct from business "not found" answers.
type Client struct {
	baseURL string
	apiKey  string
	domain  string
	http    *http.Client
}

func NewClient(baseURL, apiKey, domain string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		domain:  domain,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CheckSubscription asks the backend whether the account has an active
// paid subscription for this site's domain. Callers must not cache the
// answer.
func (c *Client) CheckSubscription(ctx context.Context, accountID string) (*SubscriptionCheckResult, error) {
	payload := map[string]string{
		"account_id": accountID,
		"domain":     c.domain,
	}

	var resp subscriptionResponse
	if err := c.post(ctx, "/check-subscription", payload, &resp); err != nil {
		return nil, err
	}

	return &SubscriptionCheckResult{
		Success:    resp.Success,
		HasActive:  normalizeActiveFlag(resp),
		Status:     resp.Status,
		LicenseKey: resp.LicenseKey,
	}, nil
}

func normalizeActiveFlag(resp subscriptionResponse) bool {
	for _, flag := range []*bool{resp.HasActiveSubscription, resp.Active, resp.SubscriptionActive} {
		if flag != nil {
			return *flag
		}
	}
	return false
}

// SaveTokens mirrors an OAuth token mutation to the backend.
func (c *Client) SaveTokens(ctx context.Context, accountID, accessToken, refreshToken string, expiresAt time.Time) error {
	payload := saveTokensRequest{
		AccountID:    accountID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(time.Until(expiresAt).Seconds()),
		Domain:       c.domain,
	}

	var resp tokensResponse
	if err := c.post(ctx, "/oauth/save-tokens", payload, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("backend rejected tokens: %s", resp.Message)
	}
	return nil
}

func (c *Client) GetTokens(ctx context.Context, accountID string) (*StoredTokens, error) {
	payload := map[string]string{
		"account_id": accountID,
		"domain":     c.domain,
	}

	var resp tokensResponse
	if err := c.post(ctx, "/oauth/get-tokens", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("backend has no tokens for account %s: %s", accountID, resp.Message)
	}

	return &StoredTokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Unix(resp.ExpiresAt, 0),
	}, nil
}

func (c *Client) GetPixelSettings(ctx context.Context, accountID string) (string, error) {
	payload := map[string]string{
		"account_id": accountID,
		"domain":     c.domain,
	}

	var resp pixelResponse
	if err := c.post(ctx, "/pixel/get", payload, &resp); err != nil {
		return "", err
	}
	return resp.PixelID, nil
}

func (c *Client) SavePixelSettings(ctx context.Context, accountID, pixelID string) error {
	payload := map[string]string{
		"account_id": accountID,
		"domain":     c.domain,
		"pixel_id":   pixelID,
	}

	var resp pixelResponse
	if err := c.post(ctx, "/pixel/set", payload, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("backend rejected pixel settings: %s", resp.Message)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend request %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend error %s (status %d): %s", path, resp.StatusCode, truncate(respBody))
	}

	return json.Unmarshal(respBody, out)
}

func truncate(b []byte) string {
	const max = 300
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
