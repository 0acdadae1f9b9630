package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// PaymobConfig holds Paymob credentials and endpoints.
type PaymobConfig struct {
	BaseURL       string
	APIKey        string
	IframeID      string
	IntegrationID string
	Currency      string
	Timeout       time.Duration
}

// PaymobClient talks to the Paymob Accept API. Auth tokens are cached and
// refreshed shortly before expiry.
type PaymobClient struct {
	cfg  PaymobConfig
	http *http.Client

	tokenMu     sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewPaymobClient constructs a PaymobClient with a bounded-timeout transport.
func NewPaymobClient(cfg PaymobConfig) *PaymobClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "EGP"
	}
	return &PaymobClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type paymobAuthResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges the API key for a gateway auth token.
func (c *PaymobClient) Authenticate(ctx context.Context) (string, error) {
	var resp paymobAuthResponse
	err := c.post(ctx, "/auth/tokens", map[string]any{
		"api_key": c.cfg.APIKey,
	}, &resp)
	if err != nil {
		return "", err
	}

	if resp.Token == "" {
		return "", fmt.Errorf("paymob auth: empty token: %w", ErrUnavailable)
	}

	c.tokenMu.Lock()
	c.token = resp.Token
	// Paymob tokens live for one hour; refresh early.
	c.tokenExpiry = time.Now().Add(55 * time.Minute)
	c.tokenMu.Unlock()

	return resp.Token, nil
}

type paymobOrderResponse struct {
	ID int64 `json:"id"`
}

// CreateOrder registers an order carrying the merchant correlation id.
func (c *PaymobClient) CreateOrder(ctx context.Context, authToken string, amountCents int64, currency, merchantOrderRef string) (int64, error) {
	var resp paymobOrderResponse
	err := c.post(ctx, "/ecommerce/orders", map[string]any{
		"auth_token":        authToken,
		"delivery_needed":   false,
		"amount_cents":      amountCents,
		"currency":          currency,
		"merchant_order_id": merchantOrderRef,
		"items":             []any{},
	}, &resp)
	if err != nil {
		return 0, err
	}

	if resp.ID == 0 {
		return 0, fmt.Errorf("paymob order: empty order id: %w", ErrUnavailable)
	}

	return resp.ID, nil
}

type paymobPaymentKeyResponse struct {
	Token string `json:"token"`
}

// CreatePaymentHandle generates a payment key and returns the iframe URL
// the payer is redirected to.
func (c *PaymobClient) CreatePaymentHandle(ctx context.Context, authToken string, orderID, amountCents int64, payerEmail, payerName string) (string, error) {
	first, last := splitName(payerName)

	var resp paymobPaymentKeyResponse
	err := c.post(ctx, "/acceptance/payment_keys", map[string]any{
		"auth_token":     authToken,
		"amount_cents":   amountCents,
		"expiration":     3600,
		"order_id":       orderID,
		"currency":       c.cfg.Currency,
		"integration_id": c.cfg.IntegrationID,
		"billing_data": map[string]any{
			"email":        payerEmail,
			"first_name":   first,
			"last_name":    last,
			"phone_number": "NA",
			"apartment":    "NA",
			"floor":        "NA",
			"street":       "NA",
			"building":     "NA",
			"city":         "NA",
			"country":      "NA",
		},
	}, &resp)
	if err != nil {
		return "", err
	}

	if resp.Token == "" {
		return "", fmt.Errorf("paymob payment key: empty token: %w", ErrUnavailable)
	}

	return fmt.Sprintf("%s/acceptance/iframes/%s?payment_token=%s", c.cfg.BaseURL, c.cfg.IframeID, resp.Token), nil
}

type paymobTransactionResponse struct {
	ID      int64 `json:"id"`
	Success bool  `json:"success"`
	Pending bool  `json:"pending"`
}

// QueryTransactionStatus checks a transaction with the gateway, using a
// cached auth token when one is still valid.
func (c *PaymobClient) QueryTransactionStatus(ctx context.Context, transactionID string) (bool, error) {
	token, err := c.cachedToken(ctx)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/acceptance/transactions/%s", c.cfg.BaseURL, transactionID), nil)
	if err != nil {
		return false, fmt.Errorf("paymob inquiry request build: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("paymob inquiry: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("paymob inquiry: status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var txn paymobTransactionResponse
	if err := json.Unmarshal(body, &txn); err != nil {
		return false, fmt.Errorf("paymob inquiry unmarshal: %v: %w", err, ErrUnavailable)
	}

	return txn.Success && !txn.Pending, nil
}

func (c *PaymobClient) cachedToken(ctx context.Context) (string, error) {
	c.tokenMu.RLock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		t := c.token
		c.tokenMu.RUnlock()
		return t, nil
	}
	c.tokenMu.RUnlock()

	return c.Authenticate(ctx)
}

func (c *PaymobClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("paymob marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("paymob request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paymob %s: %v: %w", path, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paymob %s: status %d: %w", path, resp.StatusCode, ErrUnavailable)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("paymob %s unmarshal: %v: %w", path, err, ErrUnavailable)
	}

	return nil
}

func splitName(name string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(name), " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	if parts[0] == "" {
		return "Client", "Client"
	}
	return parts[0], parts[0]
}
