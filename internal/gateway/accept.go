package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AcceptConfig holds credentials for the hosted-checkout Accept integration.
type AcceptConfig struct {
	BaseURL         string
	APIKey          string
	ProfileID       string
	Currency        string
	NotificationURL string
	Timeout         time.Duration
}

// AcceptClient is the alternative gateway integration. Interchangeable with
// PaymobClient; selected by configuration. It uses static API-key auth and a
// hosted checkout URL instead of an iframe token.
type AcceptClient struct {
	cfg  AcceptConfig
	http *http.Client
}

// NewAcceptClient constructs an AcceptClient with a bounded-timeout transport.
func NewAcceptClient(cfg AcceptConfig) *AcceptClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "EGP"
	}
	return &AcceptClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Authenticate returns the static API key; the Accept integration does not
// exchange it for a session token.
func (c *AcceptClient) Authenticate(ctx context.Context) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("accept auth: missing api key: %w", ErrUnavailable)
	}
	return c.cfg.APIKey, nil
}

type acceptOrderResponse struct {
	OrderID int64 `json:"order_id"`
}

// CreateOrder registers an order carrying the merchant correlation id.
func (c *AcceptClient) CreateOrder(ctx context.Context, authToken string, amountCents int64, currency, merchantOrderRef string) (int64, error) {
	var resp acceptOrderResponse
	err := c.post(ctx, "/v1/orders", authToken, map[string]any{
		"profile_id":       c.cfg.ProfileID,
		"amount":           amountCents,
		"currency":         currency,
		"merchant_ref":     merchantOrderRef,
		"notification_url": c.cfg.NotificationURL,
	}, &resp)
	if err != nil {
		return 0, err
	}

	if resp.OrderID == 0 {
		return 0, fmt.Errorf("accept order: empty order id: %w", ErrUnavailable)
	}

	return resp.OrderID, nil
}

type acceptCheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// CreatePaymentHandle returns the hosted checkout URL for the order.
func (c *AcceptClient) CreatePaymentHandle(ctx context.Context, authToken string, orderID, amountCents int64, payerEmail, payerName string) (string, error) {
	var resp acceptCheckoutResponse
	err := c.post(ctx, "/v1/checkout", authToken, map[string]any{
		"order_id":    orderID,
		"amount":      amountCents,
		"currency":    c.cfg.Currency,
		"payer_email": payerEmail,
		"payer_name":  payerName,
	}, &resp)
	if err != nil {
		return "", err
	}

	if resp.CheckoutURL == "" {
		return "", fmt.Errorf("accept checkout: empty url: %w", ErrUnavailable)
	}

	return resp.CheckoutURL, nil
}

type acceptTransactionResponse struct {
	Status string `json:"status"`
}

// QueryTransactionStatus checks a transaction with the gateway.
func (c *AcceptClient) QueryTransactionStatus(ctx context.Context, transactionID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/transactions/%s", c.cfg.BaseURL, transactionID), nil)
	if err != nil {
		return false, fmt.Errorf("accept inquiry request build: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("accept inquiry: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("accept inquiry: status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var txn acceptTransactionResponse
	if err := json.Unmarshal(body, &txn); err != nil {
		return false, fmt.Errorf("accept inquiry unmarshal: %v: %w", err, ErrUnavailable)
	}

	return txn.Status == "success", nil
}

func (c *AcceptClient) post(ctx context.Context, path, authToken string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("accept marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("accept request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("accept %s: %v: %w", path, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("accept %s: status %d: %w", path, resp.StatusCode, ErrUnavailable)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("accept %s unmarshal: %v: %w", path, err, ErrUnavailable)
	}

	return nil
}
