package order

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
	"github.com/sabordigital/zappedido/internal/idempotency"
)

// PaymentStatus values reported by the order backend.
const (
	PaymentPending  = "pending"
	PaymentApproved = "approved"
	PaymentRejected = "rejected"
)

// CreateRequest is the payload sent to the backend to persist an order.
type CreateRequest struct {
	CustomerPhone string          `json:"customer_phone"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Address       string          `json:"address"`
	Items         []Item          `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	Total         decimal.Decimal `json:"total"`
	PaymentType   string          `json:"payment_type"`
	PaymentLabel  string          `json:"payment_label"`
	ChangeFor     decimal.Decimal `json:"change_for,omitempty"`
}

// Backend is the order service consumed by the conversation flow.
type Backend interface {
	CreateOrder(ctx context.Context, req CreateRequest) (string, error)
	GetPaymentStatus(ctx context.Context, orderID string) (string, error)
	GetOrderStatus(ctx context.Context, orderID string) (string, error)
}

// Client talks to the order backend over HTTP, guarded by a circuit breaker.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// NewClient builds an order backend client.
func NewClient(baseURL, apiKey string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		breaker: apperrors.NewCircuitBreaker(),
		log:     log,
	}
}

var _ Backend = (*Client)(nil)

// CreateOrder persists the order and returns the backend order identifier.
// The idempotency key lets the backend collapse duplicate submissions of the
// same cart.
func (c *Client) CreateOrder(ctx context.Context, req CreateRequest) (string, error) {
	var resp struct {
		OrderID string `json:"order_id"`
	}

	key := idempotency.GenerateKey(req.CustomerPhone, req.PaymentType, req.Total.String(), len(req.Items))
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &resp, withHeader("Idempotency-Key", key)); err != nil {
		return "", err
	}

	return resp.OrderID, nil
}

// GetPaymentStatus returns the backend payment status for an order. Errors are
// reported to the caller, which treats them as "not yet resolved".
func (c *Client) GetPaymentStatus(ctx context.Context, orderID string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}

	path := fmt.Sprintf("/api/orders/%s/payment", orderID)
	err := apperrors.WithRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, path, nil, &resp)
	})
	if err != nil {
		return "", err
	}

	return resp.Status, nil
}

// GetOrderStatus returns the fulfilment status for an order.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}

	path := fmt.Sprintf("/api/orders/%s", orderID)
	err := apperrors.WithRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, path, nil, &resp)
	})
	if err != nil {
		return "", err
	}

	return resp.Status, nil
}

type requestOption func(*http.Request)

func withHeader(key, value string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, opts ...requestOption) error {
	return c.breaker.Call(func() error {
		var payload *bytes.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("encode request body: %w", err)
			}
			payload = bytes.NewReader(data)
		} else {
			payload = bytes.NewReader(nil)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", uuid.NewString())
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		for _, opt := range opts {
			opt(req)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return apperrors.NewExternalAPIError("order-backend", err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			err := fmt.Errorf("order backend returned %d", resp.StatusCode)
			c.log.Error("order backend request failed",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)
			return apperrors.NewExternalAPIError("order-backend", err)
		}

		if out == nil {
			return nil
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.NewExternalAPIError("order-backend", fmt.Errorf("decode response: %w", err))
		}

		return nil
	})
}
