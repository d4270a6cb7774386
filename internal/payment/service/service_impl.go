package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/glazeops/internal/audit/domain"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/currency"
	invoicedomain "github.com/smallbiznis/glazeops/internal/invoice/domain"
	"github.com/smallbiznis/glazeops/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	receiptdomain "github.com/smallbiznis/glazeops/internal/receipt/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        paymentdomain.Repository
	Invoices    invoicedomain.Repository
	Receipts    receiptdomain.Service
	PaymentsCfg *config.PaymentsConfigHolder
	AuditSvc    auditdomain.Service `optional:"true"`
	Metrics     *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        paymentdomain.Repository
	invoices    invoicedomain.Repository
	receipts    receiptdomain.Service
	paymentsCfg *config.PaymentsConfigHolder
	auditSvc    auditdomain.Service
	metrics     *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		invoices:    p.Invoices,
		receipts:    p.Receipts,
		paymentsCfg: p.PaymentsCfg,
		auditSvc:    p.AuditSvc,
		metrics:     p.Metrics,
	}
}

// ProcessEvent records the event in the webhook log and applies it at most
// once. Returning an error leaves the event unprocessed so the gateway
// redelivers it.
func (s *Service) ProcessEvent(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if err := validateEvent(event); err != nil {
		return err
	}

	now := s.clock.Now()
	received := paymentdomain.WebhookLog{
		ID:        s.genID.Generate(),
		Gateway:   event.Gateway,
		EventID:   event.EventID,
		EventType: event.Type,
		Payload:   datatypes.JSON(event.RawPayload),
		Attempts:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	inserted, err := s.repo.InsertWebhookLog(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindWebhookLog(ctx, s.db, event.Gateway, event.EventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.Processed {
			s.metrics.RecordPaymentEvent(ctx, event.Gateway, event.Type, "duplicate")
			return paymentdomain.ErrEventAlreadyProcessed
		}
		attempts, err := s.repo.IncrementWebhookAttempts(ctx, s.db, stored.ID, now)
		if err != nil {
			return err
		}
		if limit := s.maxAttempts(); limit > 0 && attempts > limit {
			s.log.Warn("webhook retry budget exhausted",
				zap.String("event_id", event.EventID),
				zap.String("event_type", event.Type),
				zap.Int("attempts", attempts),
			)
			s.metrics.RecordPaymentEvent(ctx, event.Gateway, event.Type, "exhausted")
			return paymentdomain.ErrRetryBudgetExhausted
		}
	}

	handled, err := s.dispatch(ctx, stored, event)
	if err != nil {
		if markErr := s.repo.MarkWebhookFailed(ctx, s.db, stored.ID, err.Error(), s.clock.Now()); markErr != nil {
			s.log.Error("failed to record webhook failure", zap.Error(markErr))
		}
		s.metrics.RecordPaymentEvent(ctx, event.Gateway, event.Type, "failed")
		return err
	}
	if !handled {
		s.log.Info("unhandled webhook event type",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.Type),
		)
		s.metrics.RecordPaymentEvent(ctx, event.Gateway, event.Type, "unhandled")
		return s.repo.MarkWebhookFailed(ctx, s.db, stored.ID, paymentdomain.ErrUnhandledEventType.Error(), s.clock.Now())
	}

	if err := s.repo.MarkWebhookProcessed(ctx, s.db, stored.ID, s.clock.Now()); err != nil {
		return err
	}
	s.metrics.RecordPaymentEvent(ctx, event.Gateway, event.Type, "processed")
	return nil
}

func (s *Service) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]paymentdomain.Payment, error) {
	if invoiceID == 0 {
		return nil, paymentdomain.ErrInvalidID
	}
	items, err := s.repo.ListPayments(ctx, s.db, paymentdomain.PaymentFilter{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	out := make([]paymentdomain.Payment, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

func validateEvent(event *paymentdomain.PaymentEvent) error {
	if event == nil {
		return paymentdomain.ErrInvalidEvent
	}
	event.Gateway = strings.ToLower(strings.TrimSpace(event.Gateway))
	event.EventID = strings.TrimSpace(event.EventID)
	event.Type = strings.TrimSpace(event.Type)
	if event.Gateway == "" || event.EventID == "" || event.Type == "" {
		return paymentdomain.ErrInvalidEvent
	}
	if len(event.RawPayload) == 0 {
		event.RawPayload = []byte("{}")
	}
	return nil
}

func (s *Service) maxAttempts() int {
	if s.paymentsCfg == nil {
		return 0
	}
	return s.paymentsCfg.Get().Webhook.MaxAttempts
}

// dispatch reports false for event types that have no handler.
func (s *Service) dispatch(ctx context.Context, stored *paymentdomain.WebhookLog, event *paymentdomain.PaymentEvent) (bool, error) {
	switch event.Type {
	case paymentdomain.EventTypePaymentIntentSucceeded:
		return true, s.applyPaymentIntent(ctx, stored, event)
	case paymentdomain.EventTypePaymentIntentFailed,
		paymentdomain.EventTypeChargeSucceeded,
		paymentdomain.EventTypeChargeFailed,
		paymentdomain.EventTypeChargeRefunded:
		s.log.Info("payment event logged",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.Type),
			zap.String("payment_intent", event.ProviderPaymentID),
			zap.String("charge_id", event.ChargeID),
			zap.Int64("amount", event.Amount),
			zap.String("currency", event.Currency),
		)
		return true, nil
	default:
		return false, nil
	}
}

func (s *Service) applyPaymentIntent(ctx context.Context, stored *paymentdomain.WebhookLog, event *paymentdomain.PaymentEvent) error {
	if event.InvoiceID == nil || *event.InvoiceID == 0 {
		return paymentdomain.ErrMissingInvoiceID
	}
	if event.Amount <= 0 {
		return paymentdomain.ErrInvalidAmount
	}
	if strings.TrimSpace(event.ProviderPaymentID) == "" {
		return paymentdomain.ErrInvalidEvent
	}
	amount := currency.FromMinorUnits(event.Amount)

	var (
		receipt receiptdomain.Receipt
		applied bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoices.FindByID(ctx, tx, *event.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return paymentdomain.ErrInvoiceNotFound
		}

		paymentDate := event.OccurredAt
		if paymentDate.IsZero() {
			paymentDate = s.clock.Now()
		}
		reference := event.ProviderPaymentID
		payment := paymentdomain.Payment{
			ID:                 s.genID.Generate(),
			InvoiceID:          invoice.ID,
			Amount:             amount,
			Currency:           firstNonEmpty(event.Currency, invoice.Currency),
			PaymentDate:        paymentDate,
			PaymentMethod:      paymentdomain.MethodStripe,
			Gateway:            event.Gateway,
			ExternalReference:  &reference,
			ChargeID:           optionalString(event.ChargeID),
			VerificationStatus: paymentdomain.VerificationVerified,
			Metadata: datatypes.JSONMap{
				"status":      event.Status,
				"receipt_url": event.ReceiptURL,
				"event_id":    event.EventID,
			},
			CreatedAt: s.clock.Now(),
		}
		created, err := s.repo.InsertPayment(ctx, tx, &payment)
		if err != nil {
			return err
		}
		if !created {
			s.log.Info("payment already recorded",
				zap.String("payment_intent", reference),
				zap.String("invoice_id", invoice.ID.String()),
			)
			return nil
		}

		entry, err := s.invoices.ApplyGatewayPayment(ctx, tx, invoice.ID, amount, s.clock.Now())
		if err != nil {
			return err
		}
		if entry == nil {
			return paymentdomain.ErrInvoiceNotFound
		}

		receipt, err = s.receipts.Issue(ctx, tx, receiptdomain.IssueRequest{
			PaymentID:     payment.ID,
			PaymentMethod: payment.PaymentMethod,
			Amount:        amount,
			Ledger:        *entry,
		})
		if err != nil {
			return err
		}

		if s.auditSvc != nil {
			if err := s.auditSvc.AuditLog(ctx, tx, "payment.received", "invoice", invoice.ID.String(), map[string]any{
				"payment_id":       payment.ID.String(),
				"gateway":          payment.Gateway,
				"event_id":         stored.EventID,
				"amount":           amount.StringFixed(2),
				"previous_balance": entry.PreviousBalance.StringFixed(2),
				"balance":          entry.Balance.StringFixed(2),
				"status":           entry.Status,
				"receipt_number":   receipt.ReceiptNumber,
			}); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		s.metrics.RecordLedgerApplied(ctx, paymentdomain.GatewayStripe, "duplicate")
		return nil
	}

	s.metrics.RecordLedgerApplied(ctx, paymentdomain.GatewayStripe, "applied")
	s.notify(ctx, receipt)
	return nil
}

// notify sends the payment-received email. Delivery failures never undo a
// committed payment.
func (s *Service) notify(ctx context.Context, receipt receiptdomain.Receipt) {
	if s.receipts == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.receipts.SendPaymentReceived(sendCtx, receipt); err != nil {
		if errors.Is(err, receiptdomain.ErrNoEmail) {
			s.log.Debug("customer has no email, skipping receipt email", zap.String("receipt_id", receipt.ID.String()))
			return
		}
		s.log.Warn("failed to send payment received email",
			zap.String("receipt_id", receipt.ID.String()),
			zap.Error(err),
		)
	}
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.ToUpper(strings.TrimSpace(value))
		}
	}
	return ""
}
