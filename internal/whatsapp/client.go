// Package whatsapp implements the WhatsApp Cloud API channel: the outbound
// message sender and the inbound webhook.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/sabordigital/zappedido/internal/errors"
	"github.com/sabordigital/zappedido/pkg/config"
)

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	http          *http.Client
	breaker       *apperrors.CircuitBreaker
	log           *slog.Logger
}

// NewClient builds a Cloud API client.
func NewClient(cfg config.WhatsAppConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL:       cfg.APIBaseURL,
		phoneNumberID: cfg.PhoneNumberID,
		token:         cfg.Token,
		http:          &http.Client{Timeout: 15 * time.Second},
		breaker:       apperrors.NewCircuitBreaker(),
		log:           log,
	}
}

type textPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// SendText delivers a plain text message to the given phone number.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
	}
	payload.Text.Body = text

	return c.breaker.Call(func() error {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}

		url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.http.Do(req)
		if err != nil {
			return apperrors.NewExternalAPIError("whatsapp", err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.log.Error("whatsapp send failed",
				slog.String("to", to),
				slog.Int("status", resp.StatusCode),
			)
			return apperrors.NewExternalAPIError("whatsapp", fmt.Errorf("cloud api returned %d", resp.StatusCode))
		}

		return nil
	})
}
