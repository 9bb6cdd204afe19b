package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"trekka/internal/shared/apperrors"
	"trekka/internal/shared/config"
	"trekka/pkg/metrics"
)

// toKobo converts a major-unit amount to the integer minor unit the gateway
// settles in. Rounding, not truncation: 19.90 is 1989.99… as a float and must
// still charge 1990 kobo. All amount comparisons happen at this precision.
func toKobo(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Gateway result statuses as seen by reconciliation. "unknown" means the
// gateway does not recognize the reference; it is never folded into failed.
const (
	GatewayStatusSuccess = "success"
	GatewayStatusFailed  = "failed"
	GatewayStatusPending = "pending"
	GatewayStatusUnknown = "unknown"
)

// Authorization is what the client needs to complete a checkout.
type Authorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// GatewayResult is the normalized outcome of a verify call or webhook payload.
type GatewayResult struct {
	Status           string
	Amount           float64
	Currency         string
	GatewayReference string
	Channel          string
	RawPayload       string
}

// RefundResult reports a gateway-confirmed refund.
type RefundResult struct {
	RefundReference string
	Amount          float64
}

// Gateway abstracts the payment provider so reconciliation can be tested
// without network calls.
type Gateway interface {
	Initialize(ctx context.Context, email, reference string, amount float64) (*Authorization, error)
	Verify(ctx context.Context, reference string) (*GatewayResult, error)
	Refund(ctx context.Context, reference string, amount float64, reason string) (*RefundResult, error)
	VerifySignature(rawBody []byte, signature string) bool
}

// PaystackClient talks to the Paystack REST API. Amounts cross the wire in
// the currency's minor unit (kobo), so they are scaled by 100 both ways.
type PaystackClient struct {
	baseURL     string
	secretKey   string
	callbackURL string
	currency    string
	hc          *http.Client
}

func NewPaystackClient(cfg *config.PaymentConfig) *PaystackClient {
	return &PaystackClient{
		baseURL:     cfg.GatewayBaseURL,
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		currency:    cfg.Currency,
		hc: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

func (c *PaystackClient) Initialize(ctx context.Context, email, reference string, amount float64) (*Authorization, error) {
	body := map[string]interface{}{
		"email":        email,
		"amount":       toKobo(amount),
		"reference":    reference,
		"currency":     c.currency,
		"callback_url": c.callbackURL,
	}

	var reply struct {
		Status  bool          `json:"status"`
		Message string        `json:"message"`
		Data    Authorization `json:"data"`
	}

	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", "initialize", body, &reply); err != nil {
		return nil, err
	}
	if !reply.Status {
		return nil, fmt.Errorf("gateway declined initialization: %s: %w", reply.Message, apperrors.ErrGatewayRejected)
	}

	return &reply.Data, nil
}

func (c *PaystackClient) Verify(ctx context.Context, reference string) (*GatewayResult, error) {
	start := time.Now()

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("verify: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.hc.Do(req)
	metrics.TrackGatewayRequest("verify", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("verify: %v: %w", err, apperrors.ErrGatewayTimeout)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("verify: read body: %w", err)
	}

	// The gateway not knowing the reference is a distinct outcome from a
	// declined charge.
	if resp.StatusCode == http.StatusNotFound {
		return &GatewayResult{Status: GatewayStatusUnknown, RawPayload: string(raw)}, nil
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("verify: gateway returned %d: %w", resp.StatusCode, apperrors.ErrGatewayUnavailable)
	}

	var reply struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Status    string  `json:"status"`
			Reference string  `json:"reference"`
			Amount    float64 `json:"amount"`
			Currency  string  `json:"currency"`
			Channel   string  `json:"channel"`
			ID        int64   `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("verify: decode response: %w", err)
	}
	if !reply.Status {
		return &GatewayResult{Status: GatewayStatusUnknown, RawPayload: string(raw)}, nil
	}

	return &GatewayResult{
		Status:           mapGatewayStatus(reply.Data.Status),
		Amount:           reply.Data.Amount / 100,
		Currency:         reply.Data.Currency,
		GatewayReference: fmt.Sprintf("%d", reply.Data.ID),
		Channel:          reply.Data.Channel,
		RawPayload:       string(raw),
	}, nil
}

func (c *PaystackClient) Refund(ctx context.Context, reference string, amount float64, reason string) (*RefundResult, error) {
	body := map[string]interface{}{
		"transaction":   reference,
		"amount":        toKobo(amount),
		"merchant_note": reason,
	}

	var reply struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			ID     int64   `json:"id"`
			Amount float64 `json:"amount"`
			Status string  `json:"status"`
		} `json:"data"`
	}

	if err := c.do(ctx, http.MethodPost, "/refund", "refund", body, &reply); err != nil {
		return nil, err
	}
	if !reply.Status {
		return nil, fmt.Errorf("gateway declined refund: %s: %w", reply.Message, apperrors.ErrGatewayRejected)
	}

	return &RefundResult{
		RefundReference: fmt.Sprintf("%d", reply.Data.ID),
		Amount:          reply.Data.Amount / 100,
	}, nil
}

// VerifySignature checks the HMAC-SHA512 of the exact raw body against the
// gateway signature header. Constant-time comparison.
func (c *PaystackClient) VerifySignature(rawBody []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *PaystackClient) do(ctx context.Context, method, path, operation string, body interface{}, out interface{}) error {
	start := time.Now()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.hc.Do(req)
	metrics.TrackGatewayRequest(operation, time.Since(start))
	if err != nil {
		// Transport errors and timeouts are indistinguishable from a charge
		// that went through; callers must not treat this as failed.
		return fmt.Errorf("%s: %v: %w", operation, err, apperrors.ErrGatewayTimeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s: gateway returned %d: %w", operation, resp.StatusCode, apperrors.ErrGatewayUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}

func mapGatewayStatus(status string) string {
	switch status {
	case "success":
		return GatewayStatusSuccess
	case "failed", "abandoned", "reversed":
		return GatewayStatusFailed
	case "pending", "ongoing", "processing", "queued":
		return GatewayStatusPending
	default:
		return GatewayStatusUnknown
	}
}
