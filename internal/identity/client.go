package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client verifies OAuth ID tokens against the identity provider's
// tokeninfo endpoint. Protocol internals stay on the provider side; this
// is a single verification call.
type Client struct {
	clientID     string
	tokenInfoURL string
	httpClient   *http.Client
}

// Profile is the verified identity extracted from an ID token
type Profile struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

type tokenInfo struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Audience string `json:"aud"`
}

// NewClient creates an identity provider client
func NewClient(clientID, tokenInfoURL string) *Client {
	return &Client{
		clientID:     clientID,
		tokenInfoURL: tokenInfoURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// VerifyIDToken validates an ID token with the provider and checks the
// audience matches this application's client id.
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*Profile, error) {
	endpoint := c.tokenInfoURL + "?id_token=" + url.QueryEscape(idToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach identity provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider rejected token (%d)", resp.StatusCode)
	}

	var info tokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("malformed tokeninfo response: %w", err)
	}
	if info.Audience != c.clientID {
		return nil, fmt.Errorf("token audience mismatch")
	}
	if info.Email == "" {
		return nil, fmt.Errorf("token carries no email")
	}

	return &Profile{Subject: info.Subject, Email: info.Email, Name: info.Name}, nil
}
