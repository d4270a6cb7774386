package service_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	invoicedomain "github.com/smallbiznis/glazeops/internal/invoice/domain"
	"github.com/smallbiznis/glazeops/internal/payment/adapters"
	"github.com/smallbiznis/glazeops/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/glazeops/internal/payment/repository"
	paymentservice "github.com/smallbiznis/glazeops/internal/payment/service"
	paymentwebhook "github.com/smallbiznis/glazeops/internal/payment/webhook"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/smallbiznis/glazeops/internal/testutil/ledgertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec_test"

type fixture struct {
	env      *ledgertest.Env
	payments paymentdomain.Service
	webhooks paymentdomain.WebhookService
}

func newFixture(t *testing.T, maxAttempts int) fixture {
	t.Helper()
	env := ledgertest.New(t, clock.NewFakeClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)))
	env.Settings.WebhookSecret = webhookSecret

	cfg := config.DefaultPaymentsConfig()
	cfg.Webhook.MaxAttempts = maxAttempts
	holder := config.NewStaticPaymentsConfigHolder(cfg)

	payments := paymentservice.NewService(paymentservice.Params{
		DB:          env.DB,
		Log:         testutil.Logger(),
		GenID:       env.Node,
		Clock:       env.Clock,
		Repo:        paymentrepo.Provide(),
		Invoices:    env.InvoiceDB,
		Receipts:    env.Receipts,
		PaymentsCfg: holder,
		AuditSvc:    env.Audit,
	})
	webhooks := paymentwebhook.NewService(paymentwebhook.Params{
		Log:         testutil.Logger(),
		Clock:       env.Clock,
		PaymentSvc:  payments,
		Adapters:    adapters.NewRegistry(stripe.NewFactory()),
		Settings:    env.Settings,
		PaymentsCfg: holder,
	})
	return fixture{env: env, payments: payments, webhooks: webhooks}
}

func (f fixture) seedInvoice(t *testing.T, total, balance string) snowflake.ID {
	t.Helper()
	customerID := testutil.SeedCustomer(t, f.env.DB, f.env.Node, "Fatima")
	return testutil.SeedInvoice(t, f.env.DB, f.env.Node, testutil.InvoiceSeed{
		CustomerID: customerID,
		OrderID:    "ORD-1",
		Total:      total,
		Balance:    balance,
	})
}

func succeededPayload(t *testing.T, eventID, intentID string, amount int64, invoiceID *snowflake.ID) []byte {
	t.Helper()
	metadata := map[string]any{}
	if invoiceID != nil {
		metadata["invoice_id"] = invoiceID.String()
	}
	payload, err := json.Marshal(map[string]any{
		"id":      eventID,
		"type":    "payment_intent.succeeded",
		"created": time.Date(2026, 5, 4, 9, 59, 0, 0, time.UTC).Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":              intentID,
				"amount":          amount,
				"amount_received": amount,
				"currency":        "aed",
				"status":          "succeeded",
				"latest_charge":   "ch_" + intentID,
				"metadata":        metadata,
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func (f fixture) signed(payload []byte) http.Header {
	ts := f.env.Clock.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d", ts)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return headers
}

func (f fixture) invoice(t *testing.T, id snowflake.ID) *invoicedomain.Invoice {
	t.Helper()
	inv, err := f.env.InvoiceDB.FindByID(context.Background(), f.env.DB, id)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv
}

func TestIngestWebhookAppliesPayment(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	invoiceID := f.seedInvoice(t, "500", "500")

	payload := succeededPayload(t, "evt_1", "pi_1", 20000, &invoiceID)
	require.NoError(t, f.webhooks.IngestWebhook(ctx, "stripe", payload, f.signed(payload)))

	inv := f.invoice(t, invoiceID)
	assert.True(t, inv.Balance.Equal(testutil.Dec(t, "300")), inv.Balance.String())
	assert.Equal(t, invoicedomain.StatusPartial, inv.Status)

	payments, err := f.payments.ListByInvoice(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, paymentdomain.MethodStripe, payments[0].PaymentMethod)
	assert.Equal(t, paymentdomain.VerificationVerified, payments[0].VerificationStatus)
	require.NotNil(t, payments[0].ExternalReference)
	assert.Equal(t, "pi_1", *payments[0].ExternalReference)
	require.NotNil(t, payments[0].ChargeID)
	assert.Equal(t, "ch_pi_1", *payments[0].ChargeID)
	assert.True(t, payments[0].Amount.Equal(testutil.Dec(t, "200")))

	receipts, err := f.env.Receipts.ListByInvoice(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "RCP-000001", receipts[0].ReceiptNumber)
	assert.True(t, receipts[0].PreviousBalance.Equal(testutil.Dec(t, "500")))
	assert.True(t, receipts[0].RemainingBalance.Equal(testutil.Dec(t, "300")))

	assert.Equal(t, int64(1), testutil.Count(t, f.env.DB, "stripe_webhooks", "event_id = ? AND processed = ?", "evt_1", true))
	assert.Equal(t, int64(1), testutil.Count(t, f.env.DB, "audit_logs", "action = ?", "payment.received"))

	sent := f.env.Mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "payment_received", sent[0].Template)
	assert.Equal(t, []string{"customer@example.com"}, sent[0].To)
}

func TestIngestWebhookSettlesInvoiceWhenBalanceReachesZero(t *testing.T) {
	f := newFixture(t, 10)
	invoiceID := f.seedInvoice(t, "150", "150")

	payload := succeededPayload(t, "evt_full", "pi_full", 15000, &invoiceID)
	require.NoError(t, f.webhooks.IngestWebhook(context.Background(), "stripe", payload, f.signed(payload)))

	inv := f.invoice(t, invoiceID)
	assert.True(t, inv.Balance.IsZero())
	assert.Equal(t, invoicedomain.StatusPaid, inv.Status)
}

func TestIngestWebhookReplayIsNoop(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	invoiceID := f.seedInvoice(t, "500", "500")

	payload := succeededPayload(t, "evt_replay", "pi_replay", 10000, &invoiceID)
	require.NoError(t, f.webhooks.IngestWebhook(ctx, "stripe", payload, f.signed(payload)))
	require.NoError(t, f.webhooks.IngestWebhook(ctx, "stripe", payload, f.signed(payload)))

	inv := f.invoice(t, invoiceID)
	assert.True(t, inv.Balance.Equal(testutil.Dec(t, "400")), inv.Balance.String())
	assert.Equal(t, int64(1), testutil.Count(t, f.env.DB, "payments", ""))
	assert.Equal(t, int64(1), testutil.Count(t, f.env.DB, "receipts", ""))
	assert.Equal(t, int64(1), testutil.Count(t, f.env.DB, "stripe_webhooks", ""))
}

func TestDistinctEventsForSameIntentApplyOnce(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	invoiceID := f.seedInvoice(t, "500", "500")

	first := succeededPayload(t, "evt_a", "pi_same", 10000, &invoiceID)
	second := succeededPayload(t, "evt_b", "pi_same", 10000, &invoiceID)
	require.NoError(t, f.webhooks.IngestWebhook(ctx, "stripe", first, f.signed(first)))
	require.NoError(t, f.webhooks.IngestWebhook(ctx, "stripe", second, f.signed(second)))

	inv := f.invoice(t, invoiceID)
	assert.True(t, inv.Balance.Equal(testutil.Dec(t, "400")))
	assert.Equal(t, int64(1), testutil.Count(t, f.env.DB, "payments", ""))
	assert.Equal(t, int64(2), testutil.Count(t, f.env.DB, "stripe_webhooks", "processed = ?", true))
}

func TestIngestWebhookWithoutInvoiceIDFails(t *testing.T) {
	f := newFixture(t, 10)
	invoiceID := f.seedInvoice(t, "500", "500")

	payload := succeededPayload(t, "evt_noinv", "pi_noinv", 10000, nil)
	err := f.webhooks.IngestWebhook(context.Background(), "stripe", payload, f.signed(payload))
	assert.ErrorIs(t, err, paymentdomain.ErrMissingInvoiceID)

	inv := f.invoice(t, invoiceID)
	assert.True(t, inv.Balance.Equal(testutil.Dec(t, "500")))
	assert.Zero(t, testutil.Count(t, f.env.DB, "payments", ""))
	assert.Zero(t, testutil.Count(t, f.env.DB, "receipts", ""))

	var row paymentdomain.WebhookLog
	require.NoError(t, f.env.DB.Where("event_id = ?", "evt_noinv").First(&row).Error)
	assert.False(t, row.Processed)
	require.NotNil(t, row.ErrorMessage)
	assert.Contains(t, *row.ErrorMessage, "invoice_id")
}

func TestIngestWebhookUnknownInvoiceRollsBack(t *testing.T) {
	f := newFixture(t, 10)
	missing := snowflake.ID(987654321)

	payload := succeededPayload(t, "evt_missing", "pi_missing", 10000, &missing)
	err := f.webhooks.IngestWebhook(context.Background(), "stripe", payload, f.signed(payload))
	assert.ErrorIs(t, err, paymentdomain.ErrInvoiceNotFound)
	assert.Zero(t, testutil.Count(t, f.env.DB, "payments", ""))
	assert.Equal(t, int64(1), testutil.Count(t, f.env.DB, "stripe_webhooks", "processed = ?", false))
}

func TestIngestWebhookTamperedBodyRejectedBeforeStorage(t *testing.T) {
	f := newFixture(t, 10)
	invoiceID := f.seedInvoice(t, "500", "500")

	original := succeededPayload(t, "evt_t", "pi_t", 100, &invoiceID)
	tampered := succeededPayload(t, "evt_t", "pi_t", 50000, &invoiceID)
	err := f.webhooks.IngestWebhook(context.Background(), "stripe", tampered, f.signed(original))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	err = f.webhooks.IngestWebhook(context.Background(), "stripe", original, http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	assert.Zero(t, testutil.Count(t, f.env.DB, "stripe_webhooks", ""))
	assert.True(t, f.invoice(t, invoiceID).Balance.Equal(testutil.Dec(t, "500")))
}

func TestIngestWebhookWithoutSecretAcceptsUnsigned(t *testing.T) {
	f := newFixture(t, 10)
	f.env.Settings.WebhookSecret = ""
	invoiceID := f.seedInvoice(t, "500", "500")

	payload := succeededPayload(t, "evt_unsigned", "pi_unsigned", 5000, &invoiceID)
	require.NoError(t, f.webhooks.IngestWebhook(context.Background(), "stripe", payload, http.Header{}))
	assert.True(t, f.invoice(t, invoiceID).Balance.Equal(testutil.Dec(t, "450")))
}

func TestLoggedOnlyAndUnknownEvents(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	refund := []byte(`{"id":"evt_refund","type":"charge.refunded","data":{"object":{"id":"ch_1","amount":100,"amount_refunded":100,"currency":"aed"}}}`)
	require.NoError(t, f.webhooks.IngestWebhook(ctx, "stripe", refund, f.signed(refund)))

	unknown := []byte(`{"id":"evt_unknown","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
	require.NoError(t, f.webhooks.IngestWebhook(ctx, "stripe", unknown, f.signed(unknown)))

	assert.Equal(t, int64(1), testutil.Count(t, f.env.DB, "stripe_webhooks", "event_id = ? AND processed = ?", "evt_refund", true))

	var row paymentdomain.WebhookLog
	require.NoError(t, f.env.DB.Where("event_id = ?", "evt_unknown").First(&row).Error)
	assert.False(t, row.Processed)
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, "unhandled event type", *row.ErrorMessage)
	assert.Zero(t, testutil.Count(t, f.env.DB, "payments", ""))
}

func TestRetryBudgetAcknowledgesExhaustedEvents(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	missing := snowflake.ID(1234)
	payload := succeededPayload(t, "evt_retry", "pi_retry", 100, &missing)

	assert.Error(t, f.webhooks.IngestWebhook(ctx, "stripe", payload, f.signed(payload)))
	assert.Error(t, f.webhooks.IngestWebhook(ctx, "stripe", payload, f.signed(payload)))
	assert.NoError(t, f.webhooks.IngestWebhook(ctx, "stripe", payload, f.signed(payload)))

	var row paymentdomain.WebhookLog
	require.NoError(t, f.env.DB.Where("event_id = ?", "evt_retry").First(&row).Error)
	assert.Equal(t, 3, row.Attempts)
	assert.False(t, row.Processed)
}

func TestIngestWebhookUnknownGateway(t *testing.T) {
	f := newFixture(t, 10)
	err := f.webhooks.IngestWebhook(context.Background(), "adyen", []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrProviderNotFound)
}
