package gateway

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable covers every transport-level gateway failure: network
// errors, timeouts, and non-2xx responses. Callers treat it as retryable
// and never mutate payment state on it.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Client is the capability contract the payment core depends on. Amounts
// crossing this boundary are integer minor currency units.
type Client interface {
	// Authenticate obtains a short-lived gateway auth token.
	Authenticate(ctx context.Context) (string, error)

	// CreateOrder registers an order for the amount and returns the
	// gateway's order id. merchantOrderRef is the merchant-assigned
	// correlation id the gateway echoes back in notifications.
	CreateOrder(ctx context.Context, authToken string, amountCents int64, currency, merchantOrderRef string) (int64, error)

	// CreatePaymentHandle returns an opaque redirect token or URL the
	// payer is sent to.
	CreatePaymentHandle(ctx context.Context, authToken string, orderID, amountCents int64, payerEmail, payerName string) (string, error)

	// QueryTransactionStatus reports whether the transaction succeeded.
	QueryTransactionStatus(ctx context.Context, transactionID string) (bool, error)
}

// ToCents converts a major-unit amount to integer minor units.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts integer minor units back to major units.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}
