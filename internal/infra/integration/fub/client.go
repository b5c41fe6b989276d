package fub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"
)

// APIError is a non-2xx answer from the FUB REST API, kept verbatim
// (status + body snippet) for the delivery log.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fub api error: %d - %s", e.StatusCode, e.Body)
}

// Caller performs bearer-authenticated HTTP calls, refreshing the
// token when FUB answers 401. The OAuth manager implements it.
type Caller interface {
	AuthenticatedCall(ctx context.Context, method, url string, body []byte) (int, []byte, error)
}

type Client struct {
	baseURL string
	caller  Caller
	http    *http.Client
}

func NewClient(baseURL string, caller Caller) *Client {
	return &Client{
		baseURL: baseURL,
		caller:  caller,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// UseCaller wires the authenticated caller after construction. The
// OAuth manager needs this client as its account resolver, so the two
// are built in sequence at startup.
func (c *Client) UseCaller(caller Caller) {
	c.caller = caller
}

// WhoAmI resolves the FUB account id for a freshly issued token. It
// takes the raw token because it runs during authorization, before the
// credential is stored.
func (c *Client) WhoAmI(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/identity", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fub identity request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: bodySnippet(body)}
	}

	var identity identityResponse
	if err := json.Unmarshal(body, &identity); err != nil {
		return "", err
	}
	id := identity.Account.ID
	if id == 0 {
		id = identity.ID
	}
	if id == 0 {
		return "", fmt.Errorf("fub identity response carried no account id")
	}
	return strconv.Itoa(id), nil
}

// CreateEvent posts a lead event. Non-2xx answers come back as
// *APIError so callers can log status and body.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) error {
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}

	status, body, err := c.caller.AuthenticatedCall(ctx, http.MethodPost, c.baseURL+"/v1/events", payload)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &APIError{StatusCode: status, Body: bodySnippet(body)}
	}
	return nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	status, body, err := c.caller.AuthenticatedCall(ctx, http.MethodGet, c.baseURL+"/v1/users", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: bodySnippet(body)}
	}

	var out usersResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// DeriveTags collects the distinct tags currently attached to FUB
// people. FUB has no standalone tag listing, so the people feed is the
// source of truth.
func (c *Client) DeriveTags(ctx context.Context) ([]string, error) {
	status, body, err := c.caller.AuthenticatedCall(ctx, http.MethodGet, c.baseURL+"/v1/people?fields=tags&limit=100", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: bodySnippet(body)}
	}

	var out peopleResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var tags []string
	for _, p := range out.People {
		for _, t := range p.Tags {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return tags, nil
}

func bodySnippet(body []byte) string {
	const max = 500
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
