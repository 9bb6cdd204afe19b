package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trekka/internal/shared/apperrors"
	"trekka/internal/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *PaystackClient {
	return NewPaystackClient(&config.PaymentConfig{
		GatewayBaseURL: baseURL,
		SecretKey:      "sk_test_secret",
		CallbackURL:    "https://app.example.com/payments/callback",
		Currency:       "NGN",
		RequestTimeout: 2 * time.Second,
	})
}

func TestInitialize(t *testing.T) {
	t.Run("sends amount in minor units and returns authorization", func(t *testing.T) {
		var captured map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transaction/initialize", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  true,
				"message": "Authorization URL created",
				"data": map[string]interface{}{
					"authorization_url": "https://checkout.paystack.com/abc123",
					"access_code":       "abc123",
					"reference":         captured["reference"],
				},
			})
		}))
		defer server.Close()

		auth, err := newTestClient(server.URL).Initialize(context.Background(), "rider@example.com", "PAY-20250901-120000-1234", 150.50)
		require.NoError(t, err)

		assert.Equal(t, float64(15050), captured["amount"], "amount must be converted to kobo")
		assert.Equal(t, "NGN", captured["currency"])
		assert.Equal(t, "https://checkout.paystack.com/abc123", auth.AuthorizationURL)
	})

	t.Run("kobo conversion rounds instead of truncating", func(t *testing.T) {
		var captured map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data": map[string]interface{}{
					"authorization_url": "https://checkout.paystack.com/abc123",
					"access_code":       "abc123",
					"reference":         captured["reference"],
				},
			})
		}))
		defer server.Close()

		// 19.9*100 is 1989.999… in float64; truncation would undercharge
		_, err := newTestClient(server.URL).Initialize(context.Background(), "rider@example.com", "PAY-X", 19.90)
		require.NoError(t, err)

		assert.Equal(t, float64(1990), captured["amount"], "19.90 must charge 1990 kobo, not 1989")
	})

	t.Run("gateway decline maps to rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  false,
				"message": "Invalid key",
			})
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Initialize(context.Background(), "rider@example.com", "PAY-X", 100)
		assert.True(t, errors.Is(err, apperrors.ErrGatewayRejected))
	})

	t.Run("5xx maps to unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Initialize(context.Background(), "rider@example.com", "PAY-X", 100)
		assert.True(t, errors.Is(err, apperrors.ErrGatewayUnavailable))
	})

	t.Run("timeout maps to gateway timeout, never failed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := NewPaystackClient(&config.PaymentConfig{
			GatewayBaseURL: server.URL,
			SecretKey:      "sk_test_secret",
			Currency:       "NGN",
			RequestTimeout: 50 * time.Millisecond,
		})

		_, err := client.Initialize(context.Background(), "rider@example.com", "PAY-X", 100)
		assert.True(t, errors.Is(err, apperrors.ErrGatewayTimeout))
	})
}

func TestVerify(t *testing.T) {
	t.Run("success result normalizes amount from kobo", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transaction/verify/PAY-REF", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data": map[string]interface{}{
					"status":    "success",
					"reference": "PAY-REF",
					"amount":    15050,
					"currency":  "NGN",
					"channel":   "card",
					"id":        987654,
				},
			})
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Verify(context.Background(), "PAY-REF")
		require.NoError(t, err)

		assert.Equal(t, GatewayStatusSuccess, result.Status)
		assert.Equal(t, 150.50, result.Amount)
		assert.Equal(t, "987654", result.GatewayReference)
		assert.NotEmpty(t, result.RawPayload)
	})

	t.Run("404 means unknown, not failed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  false,
				"message": "Transaction reference not found",
			})
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Verify(context.Background(), "PAY-MISSING")
		require.NoError(t, err)
		assert.Equal(t, GatewayStatusUnknown, result.Status)
	})

	t.Run("abandoned maps to failed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data": map[string]interface{}{
					"status": "abandoned",
					"amount": 10000,
				},
			})
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Verify(context.Background(), "PAY-REF")
		require.NoError(t, err)
		assert.Equal(t, GatewayStatusFailed, result.Status)
	})
}

func TestRefund(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refund", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PAY-REF", body["transaction"])
		assert.Equal(t, float64(15050), body["amount"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data": map[string]interface{}{
				"id":     555,
				"amount": 15050,
				"status": "pending",
			},
		})
	}))
	defer server.Close()

	refund, err := newTestClient(server.URL).Refund(context.Background(), "PAY-REF", 150.50, "customer request")
	require.NoError(t, err)
	assert.Equal(t, "555", refund.RefundReference)
	assert.Equal(t, 150.50, refund.Amount)
}

func TestVerifySignature(t *testing.T) {
	client := newTestClient("https://api.paystack.co")
	body := []byte(`{"event":"charge.success","data":{"reference":"PAY-REF"}}`)

	mac := hmac.New(sha512.New, []byte("sk_test_secret"))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.VerifySignature(body, valid))
	assert.False(t, client.VerifySignature(body, "deadbeef"))
	assert.False(t, client.VerifySignature([]byte(`{"event":"tampered"}`), valid))
}
