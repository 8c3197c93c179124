package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/sabordigital/zappedido/internal/errors"
)

// Link is the artifact returned by the payment gateway wrapper: a redirect URL
// or a PIX QR code payload, plus its expiry.
type Link struct {
	URL       string    `json:"url,omitempty"`
	QRCode    string    `json:"qr_code,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LinkRequest identifies the order and the chosen gateway/method.
type LinkRequest struct {
	OrderID string          `json:"order_id"`
	Gateway string          `json:"gateway"`
	Method  string          `json:"method"`
	Amount  decimal.Decimal `json:"amount"`
}

// LinkRequestor generates payment links for digital payment methods.
type LinkRequestor interface {
	GenerateLink(ctx context.Context, req LinkRequest) (*Link, error)
}

// Client talks to the payment gateway wrapper service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// NewClient builds a payment-link client.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: apperrors.NewCircuitBreaker(),
		log:     log,
	}
}

var _ LinkRequestor = (*Client)(nil)

// GenerateLink requests a payment link for the order. Failures surface to the
// user as a retry prompt back at payment selection.
func (c *Client) GenerateLink(ctx context.Context, req LinkRequest) (*Link, error) {
	var link Link

	err := c.breaker.Call(func() error {
		data, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("encode link request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/payment-links", bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-Request-ID", uuid.NewString())

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return apperrors.NewExternalAPIError(req.Gateway, err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.log.Error("payment link request failed",
				slog.String("gateway", req.Gateway),
				slog.String("order_id", req.OrderID),
				slog.Int("status", resp.StatusCode),
			)
			return apperrors.NewExternalAPIError(req.Gateway, fmt.Errorf("gateway returned %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
			return apperrors.NewExternalAPIError(req.Gateway, fmt.Errorf("decode response: %w", err))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &link, nil
}
