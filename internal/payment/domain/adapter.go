package domain

import (
	"context"
	"net/http"
	"time"
)

type AdapterConfig struct {
	Gateway string
	// WebhookSecret is empty when no signing secret is configured; the
	// adapter then accepts unsigned payloads.
	WebhookSecret string
	Tolerance     time.Duration
	Now           func() time.Time
}

type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}
