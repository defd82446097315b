// internal/billing/payments.go
// Package billing wraps the hosted payment provider and the promo code
// store. Promo codes gate trials, discounts and memberships; the payment
// provider handles checkout and the self-serve billing portal.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type PaymentsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewPaymentsClient(apiKey, baseURL string, timeout time.Duration) *PaymentsClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PaymentsClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type Customer struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type CheckoutSession struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	CustomerID string `json:"customer_id"`
}

type Coupon struct {
	ID         string `json:"id,omitempty"`
	Code       string `json:"code"`
	PercentOff int    `json:"percent_off"`
	Duration   string `json:"duration,omitempty"`
}

// CreateCustomer registers a platform user with the payment provider and
// returns the provider customer id.
func (c *PaymentsClient) CreateCustomer(ctx context.Context, customer *Customer) (string, error) {
	var created Customer
	if err := c.post(ctx, "/v1/customers", customer, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("no customer id in response")
	}
	return created.ID, nil
}

// CreateCheckoutSession starts a hosted checkout for the given customer and
// price. couponID is optional.
func (c *PaymentsClient) CreateCheckoutSession(ctx context.Context, customerID, priceID, couponID string) (*CheckoutSession, error) {
	payload := map[string]string{
		"customer_id": customerID,
		"price_id":    priceID,
	}
	if couponID != "" {
		payload["coupon_id"] = couponID
	}

	var session CheckoutSession
	if err := c.post(ctx, "/v1/checkout/sessions", payload, &session); err != nil {
		return nil, err
	}
	if session.URL == "" {
		return nil, fmt.Errorf("no checkout url in response")
	}
	return &session, nil
}

// CreateCoupon mirrors a discount promo code at the payment provider so
// checkout sessions can reference it.
func (c *PaymentsClient) CreateCoupon(ctx context.Context, coupon *Coupon) (string, error) {
	var created Coupon
	if err := c.post(ctx, "/v1/coupons", coupon, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("no coupon id in response")
	}
	return created.ID, nil
}

// CreateBillingPortalSession returns a URL where the customer manages their
// subscription.
func (c *PaymentsClient) CreateBillingPortalSession(ctx context.Context, customerID string) (string, error) {
	var session struct {
		URL string `json:"url"`
	}
	err := c.post(ctx, "/v1/billing_portal/sessions", map[string]string{"customer_id": customerID}, &session)
	if err != nil {
		return "", err
	}
	if session.URL == "" {
		return "", fmt.Errorf("no portal url in response")
	}
	return session.URL, nil
}

func (c *PaymentsClient) post(ctx context.Context, path string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("payment provider request failed (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
