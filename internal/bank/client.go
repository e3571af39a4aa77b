// Package bank is an HTTP client for the Nessie banking API. The API
// authenticates with a key query parameter and speaks plain JSON.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voiceteller/voiceteller/internal/logging"
)

const defaultBaseURL = "http://api.nessieisreal.com"

// Client talks to the banking API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *logging.Logger
}

// NewClient creates a banking API client. An empty baseURL selects the
// public endpoint.
func NewClient(apiKey, baseURL string, log *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.Sub("bank"),
	}
}

// GetAccount fetches a single account by ID.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var account Account
	if err := c.do(ctx, "GET", "/accounts/"+url.PathEscape(accountID), nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListPurchases fetches all purchases for an account, most recent last as
// the upstream returns them.
func (c *Client) ListPurchases(ctx context.Context, accountID string) ([]Purchase, error) {
	var purchases []Purchase
	if err := c.do(ctx, "GET", "/accounts/"+url.PathEscape(accountID)+"/purchases", nil, &purchases); err != nil {
		return nil, err
	}
	return purchases, nil
}

// CreateTransfer initiates a balance transfer from the given account.
// The returned Transfer carries the upstream transaction ID.
func (c *Client) CreateTransfer(ctx context.Context, fromAccountID string, req TransferRequest) (*Transfer, error) {
	if req.Medium == "" {
		req.Medium = "balance"
	}
	if req.TransactionDate == "" {
		req.TransactionDate = time.Now().Format("2006-01-02")
	}
	var created Transfer
	if err := c.doCreate(ctx, "/accounts/"+url.PathEscape(fromAccountID)+"/transfers", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateCustomer creates a customer record. Seeding only.
func (c *Client) CreateCustomer(ctx context.Context, customer Customer) (*Customer, error) {
	var created Customer
	if err := c.doCreate(ctx, "/customers", customer, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateAccount creates an account under a customer. Seeding only.
func (c *Client) CreateAccount(ctx context.Context, customerID string, account Account) (*Account, error) {
	var created Account
	if err := c.doCreate(ctx, "/customers/"+url.PathEscape(customerID)+"/accounts", account, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateMerchant creates a merchant record. Seeding only.
func (c *Client) CreateMerchant(ctx context.Context, merchant Merchant) (*Merchant, error) {
	var created Merchant
	if err := c.doCreate(ctx, "/merchants", merchant, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreatePurchase records a purchase against an account. Seeding only.
func (c *Client) CreatePurchase(ctx context.Context, accountID string, req PurchaseRequest) (*Purchase, error) {
	if req.Medium == "" {
		req.Medium = "balance"
	}
	var created Purchase
	if err := c.doCreate(ctx, "/accounts/"+url.PathEscape(accountID)+"/purchases", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// createEnvelope is the upstream's wrapper around created objects.
type createEnvelope struct {
	Code          int             `json:"code"`
	Message       string          `json:"message"`
	ObjectCreated json.RawMessage `json:"objectCreated"`
}

// doCreate posts a payload and unwraps the objectCreated envelope into out.
func (c *Client) doCreate(ctx context.Context, path string, payload, out any) error {
	var envelope createEnvelope
	if err := c.do(ctx, "POST", path, payload, &envelope); err != nil {
		return err
	}
	if len(envelope.ObjectCreated) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.ObjectCreated, out); err != nil {
		return fmt.Errorf("parsing created object: %w", err)
	}
	return nil
}

// do executes one API request. Non-2xx responses become APIError with the
// upstream message when one is present. A 204 leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	endpoint := fmt.Sprintf("%s%s?key=%s", c.baseURL, path, url.QueryEscape(c.apiKey))

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("bank api request")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: extractMessage(respBody)}
	}

	if resp.StatusCode == http.StatusNoContent || len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// extractMessage pulls the human-readable message out of an upstream error
// body, falling back to the raw body.
func extractMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return strings.TrimSpace(string(body))
}
