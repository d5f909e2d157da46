// Package webhook provides an HTTP delivery gateway that POSTs relay
// messages to a downstream webhook endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coregx/relay"
)

// payload is the JSON body posted to the downstream endpoint.
type payload struct {
	IdempotencyKey string          `json:"idempotencyKey"`
	Message        string          `json:"message"`
	Meta           json.RawMessage `json:"meta,omitempty"`
}

// Gateway implements relay.DeliveryGateway over HTTP.
//
// A delivery succeeds on any 2xx response. Non-2xx responses, transport
// errors, and timeouts are classified delivery failures feeding the engine's
// retry path. The idempotency key is also sent as the X-Idempotency-Key
// header so idempotency-aware targets can dedup on their side.
//
// Thread safety: Safe for concurrent use.
type Gateway struct {
	targetURL string
	client    *http.Client
	logger    relay.Logger
}

// NewGateway creates a webhook gateway posting to targetURL.
// The timeout bounds each request; pass 0 to rely on the engine's own
// delivery timeout only.
func NewGateway(targetURL string, timeout time.Duration, logger relay.Logger) *Gateway {
	return &Gateway{
		targetURL: targetURL,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Deliver posts the message to the downstream webhook endpoint.
func (g *Gateway) Deliver(ctx context.Context, idempotencyKey, message, meta string) error {
	body := payload{
		IdempotencyKey: idempotencyKey,
		Message:        message,
	}
	if meta != "" {
		body.Meta = json.RawMessage(meta)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return relay.NewErrorWithCause(relay.ErrCodeDelivery, "failed to encode webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.targetURL, bytes.NewReader(encoded))
	if err != nil {
		return relay.NewErrorWithCause(relay.ErrCodeDelivery, "failed to build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", idempotencyKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return relay.NewErrorWithCause(relay.ErrCodeDelivery, "webhook request failed", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Warnf("Webhook delivery rejected: key=%s, status=%d", idempotencyKey, resp.StatusCode)
		return relay.NewError(relay.ErrCodeDelivery, fmt.Sprintf("webhook returned status %d", resp.StatusCode))
	}

	g.logger.Debugf("Webhook delivery accepted: key=%s, status=%d", idempotencyKey, resp.StatusCode)
	return nil
}
