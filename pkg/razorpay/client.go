package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/courtside-app/courtside-backend/pkg/config"
	"github.com/courtside-app/courtside-backend/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
)

const defaultTimeout = 10 * time.Second

// Client wraps the Razorpay SDK plus the shared secrets the reconciliation
// paths need for signature checks.
type Client struct {
	api           *razorpay.Client
	keySecret     string
	webhookSecret string
	timeout       time.Duration
}

// Order is the subset of the provider order the backend keeps.
type Order struct {
	ID          string
	AmountCents int64
	Currency    string
	Receipt     string
}

// Refund is the subset of the provider refund the backend keeps.
type Refund struct {
	ID          string
	AmountCents int64
	Status      string
}

// NewClient initializes the Razorpay SDK once with the configured secrets.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logg != nil {
		logg.Info(ctx, "razorpay client initialized")
	}

	return &Client{
		api:           razorpay.NewClient(keyID, keySecret),
		keySecret:     keySecret,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		timeout:       timeout,
	}, nil
}

// KeySecret returns the API secret used for checkout signature verification.
func (c *Client) KeySecret() string {
	if c == nil {
		return ""
	}
	return c.keySecret
}

// WebhookSecret returns the webhook signing secret.
func (c *Client) WebhookSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// CreateOrder creates a provider order. The call is retried once on failure
// with the same receipt so a duplicate attempt maps to the same order.
func (c *Client) CreateOrder(ctx context.Context, amountCents int64, currency, receipt string, notes map[string]any) (*Order, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("order amount must be positive")
	}

	data := map[string]interface{}{
		"amount":   amountCents,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := c.callWithTimeout(ctx, func() (map[string]interface{}, error) {
			return c.api.Order.Create(data, nil)
		})
		if err != nil {
			lastErr = err
			continue
		}
		return &Order{
			ID:          stringField(body, "id"),
			AmountCents: intField(body, "amount"),
			Currency:    stringField(body, "currency"),
			Receipt:     stringField(body, "receipt"),
		}, nil
	}
	return nil, fmt.Errorf("create razorpay order: %w", lastErr)
}

// CreateRefund issues a refund against a captured provider payment.
func (c *Client) CreateRefund(ctx context.Context, providerPaymentID string, amountCents int64, notes map[string]any) (*Refund, error) {
	if providerPaymentID == "" {
		return nil, fmt.Errorf("provider payment id is required")
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("refund amount must be positive")
	}

	data := map[string]interface{}{}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := c.callWithTimeout(ctx, func() (map[string]interface{}, error) {
		return c.api.Payment.Refund(providerPaymentID, int(amountCents), data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("create razorpay refund: %w", err)
	}

	return &Refund{
		ID:          stringField(body, "id"),
		AmountCents: intField(body, "amount"),
		Status:      stringField(body, "status"),
	}, nil
}

type sdkResult struct {
	body map[string]interface{}
	err  error
}

// callWithTimeout bounds an SDK call, which does not accept a context itself.
func (c *Client) callWithTimeout(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan sdkResult, 1)
	go func() {
		body, err := fn()
		done <- sdkResult{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.body, res.err
	}
}

func stringField(body map[string]interface{}, key string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}

func intField(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
