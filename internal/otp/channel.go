package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"arventa.group/internal/obs"
)

// Channel delivers a generated code to its destination. Implementations must
// never log the code itself.
type Channel interface {
	Send(ctx context.Context, destination, code string) error
}

// LogChannel is the development fallback: it records that a delivery happened
// without exposing the code. Useful when no SMS provider is configured.
type LogChannel struct{}

func (LogChannel) Send(_ context.Context, destination, _ string) error {
	obs.LogRequest(map[string]any{
		"event":       "otp_delivery",
		"channel":     "log",
		"destination": maskDestination(destination),
	})
	return nil
}

const smsTimeout = 15 * time.Second

// SMSChannel delivers codes over an SMS gateway's bulk HTTP API.
type SMSChannel struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSMSChannel builds an SMS channel for the given gateway endpoint.
func NewSMSChannel(apiKey, baseURL string) *SMSChannel {
	return &SMSChannel{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: smsTimeout},
	}
}

func (c *SMSChannel) Send(ctx context.Context, destination, code string) error {
	if c.apiKey == "" || c.baseURL == "" {
		return fmt.Errorf("%w: sms gateway not configured", ErrDelivery)
	}
	body, err := json.Marshal(map[string]any{
		"route":     "otp",
		"numbers":   destination,
		"variables": code,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: gateway status=%d body=%s", ErrDelivery, resp.StatusCode, string(raw))
	}
	return nil
}
