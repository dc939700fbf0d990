package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/printworks/api/internal/config"
)

// EventSender delivers workflow events to an external receiver.
type EventSender interface {
	Send(ctx context.Context, event string, payload interface{}) error
	IsConfigured() bool
}

// WebhookClient posts workflow events to a configured HTTP endpoint.
type WebhookClient struct {
	httpClient *http.Client
	url        string
	secret     string
}

// WebhookEnvelope is the wire shape of an outbound event.
type WebhookEnvelope struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewWebhookClient creates a new webhook delivery client.
func NewWebhookClient(cfg *config.WebhookConfig) *WebhookClient {
	return &WebhookClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		url:    cfg.URL,
		secret: cfg.Secret,
	}
}

// Send posts one event to the webhook endpoint.
func (c *WebhookClient) Send(ctx context.Context, event string, payload interface{}) error {
	body, err := json.Marshal(WebhookEnvelope{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Webhook-Secret", c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook receiver error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// IsConfigured returns true if the client has a delivery URL.
func (c *WebhookClient) IsConfigured() bool {
	return c.url != ""
}
