package backend

import "time"

// SubscriptionCheckResult is the normalized view of the backend's
// subscription answer. The backend has carried three different names
// for the "is active" flag over time; the client collapses them into
// HasActive at the boundary so nothing downstream has to know.
type SubscriptionCheckResult struct {
	Success    bool
	HasActive  bool
	Status     string
	LicenseKey string
}

type StoredTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type subscriptionResponse struct {
	Success               bool   `json:"success"`
	HasActiveSubscription *bool  `json:"has_active_subscription"`
	Active                *bool  `json:"active"`
	SubscriptionActive    *bool  `json:"subscription_active"`
	Status                string `json:"status"`
	LicenseKey            string `json:"license_key"`
}

type saveTokensRequest struct {
	AccountID    string `json:"account_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Domain       string `json:"domain"`
}

type tokensResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Message      string `json:"message"`
}

type pixelResponse struct {
	Success bool   `json:"success"`
	PixelID string `json:"pixel_id"`
	Message string `json:"message"`
}
