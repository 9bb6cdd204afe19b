package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trekka/internal/shared/utils/response"
	"trekka/pkg/cache"
	"trekka/pkg/logger"
	"trekka/pkg/metrics"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "X-Paystack-Signature"

// webhookEvent mirrors the gateway's delivery envelope.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64   `json:"id"`
		Reference string  `json:"reference"`
		Status    string  `json:"status"`
		Amount    float64 `json:"amount"`
		Currency  string  `json:"currency"`
		Channel   string  `json:"channel"`
	} `json:"data"`
}

// WebhookController ingests gateway deliveries. Everything except a bad
// signature gets a 200: the gateway retries non-2xx responses, and retrying
// an event we cannot process only burns both sides.
type WebhookController struct {
	service       Service
	gateway       Gateway
	cache         cache.Service
	allowUnsigned bool
	dedupTTL      time.Duration
}

func NewWebhookController(service Service, gateway Gateway, cacheService cache.Service, allowUnsigned bool, dedupTTL time.Duration) *WebhookController {
	return &WebhookController{
		service:       service,
		gateway:       gateway,
		cache:         cacheService,
		allowUnsigned: allowUnsigned,
		dedupTTL:      dedupTTL,
	}
}

func (c *WebhookController) HandleWebhook(ctx *gin.Context) {
	rawBody, err := ctx.GetRawData()
	if err != nil {
		metrics.TrackWebhookEvent("read_error")
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Failed to read request body", nil, nil)
		return
	}

	// Signature covers the exact raw bytes, before any JSON round-trip
	signature := ctx.GetHeader(signatureHeader)
	signed := signature != ""
	if signed {
		if !c.gateway.VerifySignature(rawBody, signature) {
			metrics.TrackWebhookEvent("invalid_signature")
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid signature", nil, nil)
			return
		}
	} else if !c.allowUnsigned {
		metrics.TrackWebhookEvent("missing_signature")
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Missing signature", nil, nil)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		// Signed but unparseable; acknowledge so the gateway stops retrying
		metrics.TrackWebhookEvent("malformed")
		response.RespondJSON(ctx, "success", http.StatusOK, "Event received", nil, nil)
		return
	}

	logger.GetDefault().LogWebhookReceived(ctx.Request.Context(), event.Event, event.Data.Reference, signed)

	// Best-effort dedup; the status compare-and-set is the real guard
	if c.alreadyProcessed(ctx.Request.Context(), &event) {
		metrics.TrackWebhookEvent("duplicate")
		response.RespondJSON(ctx, "success", http.StatusOK, "Event already processed", nil, nil)
		return
	}

	switch event.Event {
	case "charge.success":
		result := &GatewayResult{
			Status:           GatewayStatusSuccess,
			Amount:           event.Data.Amount / 100,
			Currency:         event.Data.Currency,
			GatewayReference: fmt.Sprintf("%d", event.Data.ID),
			Channel:          event.Data.Channel,
			RawPayload:       string(rawBody),
		}
		if _, err := c.service.ApplyGatewayResult(ctx.Request.Context(), event.Data.Reference, result, SourceWebhook); err != nil {
			// Unknown references and transient errors still get a 200; a
			// retry cannot make a reference we never issued appear.
			logger.GetDefault().ErrorWithContext(ctx.Request.Context(), "webhook reconciliation failed", err,
				map[string]interface{}{"event": event.Event, "reference": event.Data.Reference})
			metrics.TrackWebhookEvent("reconcile_error")
			response.RespondJSON(ctx, "success", http.StatusOK, "Event received", nil, nil)
			return
		}
		c.markProcessed(ctx.Request.Context(), &event)
		metrics.TrackWebhookEvent("processed")

	case "charge.failed":
		result := &GatewayResult{
			Status:     GatewayStatusFailed,
			RawPayload: string(rawBody),
		}
		if _, err := c.service.ApplyGatewayResult(ctx.Request.Context(), event.Data.Reference, result, SourceWebhook); err != nil {
			logger.GetDefault().ErrorWithContext(ctx.Request.Context(), "webhook reconciliation failed", err,
				map[string]interface{}{"event": event.Event, "reference": event.Data.Reference})
			metrics.TrackWebhookEvent("reconcile_error")
			response.RespondJSON(ctx, "success", http.StatusOK, "Event received", nil, nil)
			return
		}
		c.markProcessed(ctx.Request.Context(), &event)
		metrics.TrackWebhookEvent("processed")

	default:
		metrics.TrackWebhookEvent("ignored")
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Event received", nil, nil)
}

func (c *WebhookController) dedupKey(event *webhookEvent) string {
	return fmt.Sprintf("trekka:webhook:%s:%d:%s", event.Event, event.Data.ID, event.Data.Reference)
}

func (c *WebhookController) alreadyProcessed(ctx context.Context, event *webhookEvent) bool {
	if c.cache == nil {
		return false
	}
	// Exists only; redis being down must not block ingestion
	return c.cache.Exists(ctx, c.dedupKey(event))
}

// markProcessed claims the dedup key only after reconciliation succeeded. A
// transient failure leaves the key unset so the gateway's retry delivery can
// still settle the payment.
func (c *WebhookController) markProcessed(ctx context.Context, event *webhookEvent) {
	if c.cache == nil {
		return
	}
	if _, err := c.cache.SetIfAbsent(ctx, c.dedupKey(event), c.dedupTTL); err != nil {
		logger.GetDefault().ErrorWithContext(ctx, "failed to mark webhook event processed", err, nil)
	}
}
