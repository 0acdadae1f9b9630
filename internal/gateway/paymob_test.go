package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCents(t *testing.T) {
	assert.Equal(t, int64(30000), ToCents(300))
	assert.Equal(t, int64(1500), ToCents(15))
	assert.Equal(t, int64(1050), ToCents(10.5))
	assert.Equal(t, int64(1), ToCents(0.005))
	assert.Equal(t, 10.5, FromCents(1050))
}

func TestPaymobAuthenticateAndOrder(t *testing.T) {
	var gotOrder map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/tokens":
			json.NewEncoder(w).Encode(map[string]any{"token": "tok-1"})
		case "/ecommerce/orders":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotOrder))
			json.NewEncoder(w).Encode(map[string]any{"id": 4477})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewPaymobClient(PaymobConfig{BaseURL: srv.URL, APIKey: "key"})

	token, err := client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	orderID, err := client.CreateOrder(context.Background(), token, 30000, "EGP", "ref-123")
	require.NoError(t, err)
	assert.Equal(t, int64(4477), orderID)

	// The merchant correlation id must round-trip through the order.
	assert.Equal(t, "ref-123", gotOrder["merchant_order_id"])
	assert.Equal(t, float64(30000), gotOrder["amount_cents"])
}

func TestPaymobPaymentHandleIsIframeURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/acceptance/payment_keys", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"token": "pay-key"})
	}))
	defer srv.Close()

	client := NewPaymobClient(PaymobConfig{BaseURL: srv.URL, APIKey: "key", IframeID: "941402"})

	handle, err := client.CreatePaymentHandle(context.Background(), "tok", 4477, 30000, "owner@example.com", "Aya Hassan")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/acceptance/iframes/941402?payment_token=pay-key", handle)
}

func TestPaymobQueryTransactionStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/tokens":
			json.NewEncoder(w).Encode(map[string]any{"token": "tok-1"})
		case "/acceptance/transactions/tx-9":
			json.NewEncoder(w).Encode(map[string]any{"id": 9, "success": true, "pending": false})
		case "/acceptance/transactions/tx-10":
			json.NewEncoder(w).Encode(map[string]any{"id": 10, "success": true, "pending": true})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewPaymobClient(PaymobConfig{BaseURL: srv.URL, APIKey: "key"})

	ok, err := client.QueryTransactionStatus(context.Background(), "tx-9")
	require.NoError(t, err)
	assert.True(t, ok)

	// A transaction still pending at the gateway is not a success.
	ok, err = client.QueryTransactionStatus(context.Background(), "tx-10")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPaymobTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewPaymobClient(PaymobConfig{BaseURL: srv.URL, APIKey: "key", Timeout: 20 * time.Millisecond})

	_, err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestPaymobServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewPaymobClient(PaymobConfig{BaseURL: srv.URL, APIKey: "key"})

	_, err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestAcceptClientCheckoutFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/orders":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ref-55", body["merchant_ref"])
			json.NewEncoder(w).Encode(map[string]any{"order_id": 88})
		case "/v1/checkout":
			json.NewEncoder(w).Encode(map[string]any{"checkout_url": "https://checkout.example/88"})
		case "/v1/transactions/tx-88":
			json.NewEncoder(w).Encode(map[string]any{"status": "success"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewAcceptClient(AcceptConfig{BaseURL: srv.URL, APIKey: "key", ProfileID: "p1"})

	token, err := client.Authenticate(context.Background())
	require.NoError(t, err)

	orderID, err := client.CreateOrder(context.Background(), token, 5000, "EGP", "ref-55")
	require.NoError(t, err)
	assert.Equal(t, int64(88), orderID)

	handle, err := client.CreatePaymentHandle(context.Background(), token, orderID, 5000, "renter@example.com", "Omar")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/88", handle)

	ok, err := client.QueryTransactionStatus(context.Background(), "tx-88")
	require.NoError(t, err)
	assert.True(t, ok)
}
