package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

const DefaultTolerance = 5 * time.Minute

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return paymentdomain.GatewayStripe
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Adapter{
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		tolerance:     tolerance,
		now:           now,
	}, nil
}

type Adapter struct {
	webhookSecret string
	tolerance     time.Duration
	now           func() time.Time
}

// Signed reports whether payloads are authenticated.
func (a *Adapter) Signed() bool {
	return a.webhookSecret != ""
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if !a.Signed() {
		return nil
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	// The SDK checks tolerance against the wall clock; age is checked below
	// against the adapter clock instead.
	if err := webhook.ValidatePayloadIgnoringTolerance(payload, sigHeader, a.webhookSecret); err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	signedAt, ok := signatureTimestamp(sigHeader)
	if !ok {
		return paymentdomain.ErrInvalidSignature
	}
	age := a.now().Sub(signedAt)
	if age > a.tolerance || age < -a.tolerance {
		return paymentdomain.ErrSignatureExpired
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var event stripego.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	eventType := strings.TrimSpace(string(event.Type))
	if strings.TrimSpace(event.ID) == "" || eventType == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch eventType {
	case paymentdomain.EventTypePaymentIntentSucceeded, paymentdomain.EventTypePaymentIntentFailed:
		return a.parsePaymentIntent(event, payload)
	case paymentdomain.EventTypeChargeSucceeded, paymentdomain.EventTypeChargeFailed, paymentdomain.EventTypeChargeRefunded:
		return a.parseCharge(event, payload)
	default:
		return &paymentdomain.PaymentEvent{
			Gateway:    paymentdomain.GatewayStripe,
			EventID:    event.ID,
			Type:       eventType,
			OccurredAt: timestamp(event.Created, 0),
			RawPayload: payload,
		}, nil
	}
}

func eventObject(event stripego.Event) ([]byte, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, paymentdomain.ErrInvalidPayload
	}
	return event.Data.Raw, nil
}

func (a *Adapter) parsePaymentIntent(event stripego.Event, payload []byte) (*paymentdomain.PaymentEvent, error) {
	raw, err := eventObject(event)
	if err != nil {
		return nil, err
	}
	var intent stripego.PaymentIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	amount := intent.AmountReceived
	if amount <= 0 {
		amount = intent.Amount
	}
	var chargeID, receiptURL string
	if intent.LatestCharge != nil {
		chargeID, receiptURL = intent.LatestCharge.ID, intent.LatestCharge.ReceiptURL
	}

	return &paymentdomain.PaymentEvent{
		Gateway:           paymentdomain.GatewayStripe,
		EventID:           event.ID,
		Type:              string(event.Type),
		ProviderPaymentID: intent.ID,
		ChargeID:          chargeID,
		Status:            string(intent.Status),
		ReceiptURL:        receiptURL,
		Amount:            amount,
		Currency:          strings.ToUpper(strings.TrimSpace(string(intent.Currency))),
		OccurredAt:        timestamp(intent.Created, event.Created),
		RawPayload:        payload,
		InvoiceID:         parseInvoiceID(intent.Metadata),
	}, nil
}

func (a *Adapter) parseCharge(event stripego.Event, payload []byte) (*paymentdomain.PaymentEvent, error) {
	raw, err := eventObject(event)
	if err != nil {
		return nil, err
	}
	var charge stripego.Charge
	if err := json.Unmarshal(raw, &charge); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	amount := charge.Amount
	if string(event.Type) == paymentdomain.EventTypeChargeRefunded && charge.AmountRefunded > 0 {
		amount = charge.AmountRefunded
	}
	var intentID string
	if charge.PaymentIntent != nil {
		intentID = charge.PaymentIntent.ID
	}

	return &paymentdomain.PaymentEvent{
		Gateway:           paymentdomain.GatewayStripe,
		EventID:           event.ID,
		Type:              string(event.Type),
		ProviderPaymentID: intentID,
		ChargeID:          charge.ID,
		Status:            string(charge.Status),
		ReceiptURL:        charge.ReceiptURL,
		Amount:            amount,
		Currency:          strings.ToUpper(strings.TrimSpace(string(charge.Currency))),
		OccurredAt:        timestamp(charge.Created, event.Created),
		RawPayload:        payload,
		InvoiceID:         parseInvoiceID(charge.Metadata),
	}, nil
}

// signatureTimestamp reads t= from a Stripe-Signature header.
func signatureTimestamp(header string) (time.Time, bool) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(key) != "t" {
			continue
		}
		unix, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(unix, 0), true
	}
	return time.Time{}, false
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func parseInvoiceID(metadata map[string]string) *snowflake.ID {
	raw := strings.TrimSpace(metadata["invoice_id"])
	if raw == "" {
		return nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}
