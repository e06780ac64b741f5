package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the hosted payment processor's HTTP API. The processor
// owns the checkout session lifecycle; this service only opens sessions
// and mirrors the outcome it reports via webhooks.
type Client struct {
	apiURL     string
	secretKey  string
	successURL string
	cancelURL  string
	httpClient *http.Client
}

// NewClient creates a payment provider client
func NewClient(apiURL, secretKey, successURL, cancelURL string) *Client {
	return &Client{
		apiURL:     apiURL,
		secretKey:  secretKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SessionLineItem is one purchasable line in a checkout session
type SessionLineItem struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// CheckoutSession is the provider's view of one pending purchase
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type sessionResponse struct {
	Session *CheckoutSession `json:"session"`
	Error   *apiError        `json:"error,omitempty"`
}

type customerResponse struct {
	Customer *struct {
		ID string `json:"id"`
	} `json:"customer"`
	Error *apiError `json:"error,omitempty"`
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach payment provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("payment provider error (%d): %s", resp.StatusCode, string(raw))
	}

	return json.Unmarshal(raw, out)
}

// CreateCheckoutSession opens a hosted checkout session for a customer
// and returns the session id plus the redirect URL to the payment page.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID string, items []SessionLineItem) (*CheckoutSession, error) {
	payload := map[string]interface{}{
		"customer":    customerID,
		"line_items":  items,
		"success_url": c.successURL,
		"cancel_url":  c.cancelURL,
	}

	var resp sessionResponse
	if err := c.post(ctx, "/v1/checkout/sessions", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("payment provider rejected session: %s", resp.Error.Message)
	}
	if resp.Session == nil || resp.Session.URL == "" {
		return nil, fmt.Errorf("payment provider returned no session URL")
	}
	return resp.Session, nil
}

// CreateCustomer provisions a customer record at the provider
func (c *Client) CreateCustomer(ctx context.Context, email string) (string, error) {
	var resp customerResponse
	if err := c.post(ctx, "/v1/customers", map[string]string{"email": email}, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("payment provider rejected customer: %s", resp.Error.Message)
	}
	if resp.Customer == nil || resp.Customer.ID == "" {
		return "", fmt.Errorf("payment provider returned no customer id")
	}
	return resp.Customer.ID, nil
}
