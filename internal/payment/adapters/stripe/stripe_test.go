package stripe

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
)

func newAdapter(t *testing.T, secret string, now time.Time) *Adapter {
	t.Helper()
	adapter, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{
		WebhookSecret: secret,
		Now:           func() time.Time { return now },
	})
	require.NoError(t, err)
	return adapter.(*Adapter)
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"charge.succeeded","data":{"object":{}}}`)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	adapter := newAdapter(t, secret, now)

	headers := http.Header{}
	headers.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, now.Unix()))
	require.NoError(t, adapter.Verify(context.Background(), payload, headers))

	headers.Set("Stripe-Signature", buildStripeSignatureHeader("wrong", payload, now.Unix()))
	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, headers), paymentdomain.ErrInvalidSignature)

	tampered := []byte(`{"id":"evt_123","type":"charge.succeeded","data":{"object":{"amount":1}}}`)
	headers.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, now.Unix()))
	assert.ErrorIs(t, adapter.Verify(context.Background(), tampered, headers), paymentdomain.ErrInvalidSignature)

	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, http.Header{}), paymentdomain.ErrInvalidSignature)

	headers.Set("Stripe-Signature", "garbage")
	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, headers), paymentdomain.ErrInvalidSignature)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_old","type":"charge.succeeded","data":{"object":{}}}`)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	adapter := newAdapter(t, secret, now)

	headers := http.Header{}
	headers.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, now.Add(-10*time.Minute).Unix()))
	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, headers), paymentdomain.ErrSignatureExpired)

	headers.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, now.Add(-4*time.Minute).Unix()))
	assert.NoError(t, adapter.Verify(context.Background(), payload, headers))
}

func TestVerifyWithoutSecretAcceptsUnsigned(t *testing.T) {
	adapter := newAdapter(t, "  ", time.Now())
	assert.False(t, adapter.Signed())
	assert.NoError(t, adapter.Verify(context.Background(), []byte(`{}`), http.Header{}))
}

func TestParsePaymentEvent(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	invoiceID := node.Generate()
	created := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC).Unix()

	tests := []struct {
		name        string
		event       any
		wantType    string
		amount      int64
		chargeID    string
		wantInvoice bool
	}{{
		name: "payment_intent.succeeded",
		event: map[string]any{
			"id":      "evt_pi",
			"type":    "payment_intent.succeeded",
			"created": created,
			"data": map[string]any{
				"object": map[string]any{
					"id":              "pi_1",
					"amount":          2500,
					"amount_received": 2500,
					"currency":        "aed",
					"status":          "succeeded",
					"latest_charge":   "ch_1",
					"created":         created,
					"metadata":        map[string]any{"invoice_id": invoiceID.String()},
				},
			},
		},
		wantType:    paymentdomain.EventTypePaymentIntentSucceeded,
		amount:      2500,
		chargeID:    "ch_1",
		wantInvoice: true,
	}, {
		name: "charge.refunded",
		event: map[string]any{
			"id":      "evt_charge",
			"type":    "charge.refunded",
			"created": created,
			"data": map[string]any{
				"object": map[string]any{
					"id":              "ch_2",
					"amount":          1000,
					"amount_refunded": 400,
					"currency":        "aed",
					"payment_intent":  "pi_2",
					"receipt_url":     "https://pay.stripe.com/receipts/ch_2",
				},
			},
		},
		wantType: paymentdomain.EventTypeChargeRefunded,
		amount:   400,
		chargeID: "ch_2",
	}, {
		name: "unknown type is still returned",
		event: map[string]any{
			"id":      "evt_other",
			"type":    "customer.created",
			"created": created,
			"data":    map[string]any{"object": map[string]any{"id": "cus_1"}},
		},
		wantType: "customer.created",
	}}

	adapter := newAdapter(t, "", time.Now())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := json.Marshal(tc.event)
			require.NoError(t, err)

			event, err := adapter.Parse(context.Background(), payload)
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, event.Type)
			assert.Equal(t, tc.amount, event.Amount)
			assert.Equal(t, tc.chargeID, event.ChargeID)
			assert.Equal(t, paymentdomain.GatewayStripe, event.Gateway)
			if tc.wantInvoice {
				require.NotNil(t, event.InvoiceID)
				assert.Equal(t, invoiceID, *event.InvoiceID)
				assert.Equal(t, "AED", event.Currency)
			} else {
				assert.Nil(t, event.InvoiceID)
			}
		})
	}
}

func TestParseExpandedLatestCharge(t *testing.T) {
	adapter := newAdapter(t, "", time.Now())
	payload := []byte(`{"id":"evt_x","type":"payment_intent.succeeded","data":{"object":{
		"id":"pi_9","amount":500,"currency":"aed",
		"latest_charge":{"id":"ch_9","receipt_url":"https://r/ch_9"},
		"metadata":{"invoice_id":"not-a-number"}}}}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "ch_9", event.ChargeID)
	assert.Equal(t, "https://r/ch_9", event.ReceiptURL)
	assert.Equal(t, int64(500), event.Amount)
	assert.Nil(t, event.InvoiceID)
}

func TestParseRejectsMalformed(t *testing.T) {
	adapter := newAdapter(t, "", time.Now())

	_, err := adapter.Parse(context.Background(), []byte(`{not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	_, err = adapter.Parse(context.Background(), []byte(`{"type":"charge.succeeded"}`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent)
}

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signature := webhook.ComputeSignature(time.Unix(timestamp, 0), payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(signature))
}
