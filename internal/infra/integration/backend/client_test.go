package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func timeIn(seconds int) time.Time {
	return time.Now().Add(time.Duration(seconds) * time.Second)
}

func subscriptionServer(t *testing.T, responseBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/check-subscription", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("X-API-Key"))

		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		assert.Equal(t, "example.com", payload["domain"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, responseBody)
	}))
}

func TestCheckSubscriptionNormalizesFlagSpellings(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"has_active_subscription", `{"success":true,"has_active_subscription":true,"status":"active"}`, true},
		{"active", `{"success":true,"active":true,"status":"active"}`, true},
		{"subscription_active", `{"success":true,"subscription_active":true,"status":"active"}`, true},
		{"explicit false", `{"success":true,"active":false,"status":"expired"}`, false},
		{"no flag at all", `{"success":true,"status":"unknown"}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := subscriptionServer(t, tc.body)
			defer ts.Close()

			client := NewClient(ts.URL, "secret-key", "example.com")
			result, err := client.CheckSubscription(context.Background(), "acct-1")

			assert.NoError(t, err)
			assert.Equal(t, tc.want, result.HasActive)
		})
	}
}

func TestCheckSubscriptionFirstFlagWins(t *testing.T) {
	// When the backend sends more than one spelling, the oldest name is
	// authoritative.
	body := `{"success":true,"has_active_subscription":true,"active":false}`
	ts := subscriptionServer(t, body)
	defer ts.Close()

	client := NewClient(ts.URL, "secret-key", "example.com")
	result, err := client.CheckSubscription(context.Background(), "acct-1")

	assert.NoError(t, err)
	assert.True(t, result.HasActive)
}

func TestCheckSubscriptionBackendErrorPropagates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "secret-key", "example.com")
	result, err := client.CheckSubscription(context.Background(), "acct-1")

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestSaveTokensSendsRemainingLifetime(t *testing.T) {
	var received saveTokensRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/save-tokens", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&received)
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "secret-key", "example.com")
	err := client.SaveTokens(context.Background(), "acct-1", "tok", "refresh", timeIn(3600))

	assert.NoError(t, err)
	assert.Equal(t, "acct-1", received.AccountID)
	assert.InDelta(t, 3600, received.ExpiresIn, 5)
}

func TestGetTokensReturnsStoredPair(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/get-tokens", r.URL.Path)
		fmt.Fprintf(w, `{"success":true,"access_token":"tok-b","refresh_token":"refresh-b","expires_at":%d}`,
			timeIn(3600).Unix())
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "secret-key", "example.com")
	tokens, err := client.GetTokens(context.Background(), "acct-1")

	assert.NoError(t, err)
	assert.Equal(t, "tok-b", tokens.AccessToken)
	assert.Equal(t, "refresh-b", tokens.RefreshToken)
	assert.WithinDuration(t, timeIn(3600), tokens.ExpiresAt, 5*time.Second)
}

func TestGetTokensUnknownAccountIsAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"message":"no tokens stored"}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "secret-key", "example.com")
	tokens, err := client.GetTokens(context.Background(), "acct-1")

	assert.Nil(t, tokens)
	assert.ErrorContains(t, err, "no tokens")
}

func TestSaveTokensRejectionIsAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"message":"unknown account"}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "secret-key", "example.com")
	err := client.SaveTokens(context.Background(), "acct-1", "tok", "refresh", timeIn(3600))

	assert.ErrorContains(t, err, "unknown account")
}
