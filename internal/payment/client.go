// Package payment talks to the external payment provider's REST API.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/pkg/breaker"
	"storefront/pkg/log"
)

// Intent is a payment intent created with the provider.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// RefundResult is the provider's answer to a refund request.
type RefundResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// Client payment provider client interface
type Client interface {
	// CreateIntent registers a payment of amount (minor units) and returns
	// the intent the storefront hands to the browser.
	CreateIntent(ctx context.Context, amount int64, orderNo string) (*Intent, error)

	// Refund refunds amount against a previously captured payment.
	Refund(ctx context.Context, paymentID string, amount int64) (*RefundResult, error)
}

type client struct {
	baseURL  string
	apiKey   string
	currency string
	http     *http.Client
	cb       *breaker.CircuitBreaker
}

// NewClient creates a payment client. Calls run through a circuit breaker so
// a provider outage fails fast instead of piling up checkout requests.
func NewClient(cfg *config.PaymentConfig) Client {
	return &client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		currency: cfg.Currency,
		http:     &http.Client{Timeout: cfg.Timeout},
		cb: breaker.NewCircuitBreaker("payment", breaker.Config{
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
		}),
	}
}

// CreateIntent registers a payment with the provider
func (c *client) CreateIntent(ctx context.Context, amount int64, orderNo string) (*Intent, error) {
	body := map[string]interface{}{
		"amount":   amount,
		"currency": c.currency,
		"metadata": map[string]string{"order_no": orderNo},
	}

	var intent Intent
	err := c.cb.Execute(ctx, func() error {
		return c.post(ctx, "/v1/payment_intents", body, &intent)
	})
	if err != nil {
		log.WithFields(map[string]interface{}{
			"order_no": orderNo,
			"amount":   amount,
			"error":    err.Error(),
		}).Error("Payment intent creation failed")
		return nil, err
	}

	return &intent, nil
}

// Refund refunds a captured payment
func (c *client) Refund(ctx context.Context, paymentID string, amount int64) (*RefundResult, error) {
	body := map[string]interface{}{
		"payment_intent": paymentID,
		"amount":         amount,
	}

	var result RefundResult
	err := c.cb.Execute(ctx, func() error {
		return c.post(ctx, "/v1/refunds", body, &result)
	})
	if err != nil {
		log.WithFields(map[string]interface{}{
			"payment_id": paymentID,
			"amount":     amount,
			"error":      err.Error(),
		}).Error("Refund request failed")
		return nil, err
	}

	return &result, nil
}

func (c *client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("payment provider returned %d: %s", resp.StatusCode, string(data))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
