package verification

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	attachmentdomain "github.com/smallbiznis/glazeops/internal/attachment/domain"
	auditdomain "github.com/smallbiznis/glazeops/internal/audit/domain"
	"github.com/smallbiznis/glazeops/internal/clock"
	invoicedomain "github.com/smallbiznis/glazeops/internal/invoice/domain"
	"github.com/smallbiznis/glazeops/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	receiptdomain "github.com/smallbiznis/glazeops/internal/receipt/domain"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
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
	Attachments attachmentdomain.Service
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
	attachments attachmentdomain.Service
	auditSvc    auditdomain.Service
	metrics     *metrics.Metrics
}

func NewService(p Params) paymentdomain.VerificationService {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.verification"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		invoices:    p.Invoices,
		receipts:    p.Receipts,
		attachments: p.Attachments,
		auditSvc:    p.AuditSvc,
		metrics:     p.Metrics,
	}
}

// SubmitBankTransfer stores the proof and records a pending payment. The
// ledger is untouched until an admin verifies it.
func (s *Service) SubmitBankTransfer(ctx context.Context, req paymentdomain.SubmitBankTransferRequest) (paymentdomain.Payment, error) {
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if !req.Amount.IsPositive() {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidAmount
	}
	if len(req.Content) == 0 {
		return paymentdomain.Payment{}, paymentdomain.ErrNoProof
	}

	invoice, err := s.invoices.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if invoice == nil {
		return paymentdomain.Payment{}, paymentdomain.ErrInvoiceNotFound
	}

	now := s.clock.Now()
	paymentDate := now
	if req.PaymentDate != nil && !req.PaymentDate.IsZero() {
		paymentDate = req.PaymentDate.UTC()
	}

	paymentID := s.genID.Generate()
	proof, err := s.attachments.Upload(ctx, attachmentdomain.UploadRequest{
		OwnerType:  attachmentdomain.OwnerPayment,
		OwnerID:    paymentID,
		FileName:   req.FileName,
		Content:    req.Content,
		UploadedBy: req.SubmittedBy,
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	metadata := datatypes.JSONMap{"proof_file": proof.FileName}
	if reference := strings.TrimSpace(req.Reference); reference != "" {
		metadata["reference"] = reference
	}
	payment := paymentdomain.Payment{
		ID:                 paymentID,
		InvoiceID:          invoice.ID,
		Amount:             req.Amount.Round(2),
		Currency:           invoice.Currency,
		PaymentDate:        paymentDate,
		PaymentMethod:      paymentdomain.MethodBankTransfer,
		VerificationStatus: paymentdomain.VerificationPending,
		ProofAttachmentID:  &proof.ID,
		SubmittedBy:        req.SubmittedBy,
		Metadata:           metadata,
		CreatedAt:          now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.InsertPayment(ctx, tx, &payment); err != nil {
			return err
		}
		if s.auditSvc != nil {
			return s.auditSvc.AuditLog(ctx, tx, "payment.submitted", "payment", payment.ID.String(), map[string]any{
				"invoice_id":    invoice.ID.String(),
				"amount":        payment.Amount.StringFixed(2),
				"attachment_id": proof.ID.String(),
			})
		}
		return nil
	})
	if err != nil {
		if delErr := s.attachments.Delete(ctx, proof.ID); delErr != nil {
			s.log.Warn("failed to remove orphaned proof",
				zap.String("attachment_id", proof.ID.String()),
				zap.Error(delErr),
			)
		}
		return paymentdomain.Payment{}, err
	}
	return payment, nil
}

func (s *Service) ListPending(ctx context.Context, req paymentdomain.ListPaymentsRequest) (paymentdomain.ListPaymentsResponse, error) {
	after, err := req.After()
	if err != nil {
		return paymentdomain.ListPaymentsResponse{}, err
	}
	limit := req.Limit()
	items, err := s.repo.ListPayments(ctx, s.db, paymentdomain.PaymentFilter{
		VerificationStatus: paymentdomain.VerificationPending,
		PaymentMethod:      paymentdomain.MethodBankTransfer,
		After:              after,
		Limit:              limit,
	})
	if err != nil {
		return paymentdomain.ListPaymentsResponse{}, err
	}

	payments := make([]paymentdomain.Payment, 0, len(items))
	for _, item := range items {
		if item != nil {
			payments = append(payments, *item)
		}
	}
	payments, info := pagination.Page(payments, limit, func(p paymentdomain.Payment) int64 { return p.ID.Int64() })
	return paymentdomain.ListPaymentsResponse{PageInfo: info, Payments: payments}, nil
}

func (s *Service) ProofURL(ctx context.Context, paymentID string) (paymentdomain.ProofURL, error) {
	payment, err := s.load(ctx, paymentID)
	if err != nil {
		return paymentdomain.ProofURL{}, err
	}
	if payment.ProofAttachmentID == nil {
		return paymentdomain.ProofURL{}, paymentdomain.ErrNoProof
	}
	signed, err := s.attachments.SignedURL(ctx, *payment.ProofAttachmentID)
	if err != nil {
		if errors.Is(err, attachmentdomain.ErrNotFound) {
			return paymentdomain.ProofURL{}, paymentdomain.ErrNoProof
		}
		return paymentdomain.ProofURL{}, err
	}
	return paymentdomain.ProofURL{URL: signed.URL, ExpiresAt: signed.ExpiresAt}, nil
}

// Verify moves a pending bank transfer to verified and applies it to the
// invoice in the same transaction. Only the first reviewer wins.
func (s *Service) Verify(ctx context.Context, req paymentdomain.ReviewRequest) (paymentdomain.Payment, error) {
	payment, err := s.reviewable(ctx, req.PaymentID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	now := s.clock.Now()
	var receipt receiptdomain.Receipt
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.repo.Review(ctx, tx, paymentdomain.ReviewUpdate{
			ID:         payment.ID,
			Status:     paymentdomain.VerificationVerified,
			ReviewerID: req.ReviewerID,
			Notes:      optionalString(req.Notes),
			ReviewedAt: now,
		})
		if err != nil {
			return err
		}
		if !updated {
			return paymentdomain.ErrAlreadyReviewed
		}

		entry, err := s.invoices.ApplyManualPayment(ctx, tx, payment.InvoiceID, payment.Amount, now)
		if err != nil {
			return err
		}
		if entry == nil {
			return paymentdomain.ErrInvoiceNotFound
		}

		receipt, err = s.receipts.Issue(ctx, tx, receiptdomain.IssueRequest{
			PaymentID:     payment.ID,
			PaymentMethod: payment.PaymentMethod,
			Amount:        payment.Amount,
			Ledger:        *entry,
		})
		if err != nil {
			return err
		}

		if s.auditSvc != nil {
			return s.auditSvc.AuditLog(ctx, tx, "payment.verified", "payment", payment.ID.String(), map[string]any{
				"invoice_id":       payment.InvoiceID.String(),
				"amount":           payment.Amount.StringFixed(2),
				"previous_balance": entry.PreviousBalance.StringFixed(2),
				"balance":          entry.Balance.StringFixed(2),
				"status":           entry.Status,
				"receipt_number":   receipt.ReceiptNumber,
				"notes":            strings.TrimSpace(req.Notes),
			})
		}
		return nil
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	s.metrics.RecordLedgerApplied(ctx, "bank_transfer", "applied")
	s.notify(ctx, receipt)
	return s.reload(ctx, payment.ID.String())
}

// Reject records the decision on the payment only.
func (s *Service) Reject(ctx context.Context, req paymentdomain.ReviewRequest) (paymentdomain.Payment, error) {
	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		return paymentdomain.Payment{}, paymentdomain.ErrNotesRequired
	}
	payment, err := s.reviewable(ctx, req.PaymentID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.repo.Review(ctx, tx, paymentdomain.ReviewUpdate{
			ID:         payment.ID,
			Status:     paymentdomain.VerificationRejected,
			ReviewerID: req.ReviewerID,
			Notes:      &notes,
			ReviewedAt: s.clock.Now(),
		})
		if err != nil {
			return err
		}
		if !updated {
			return paymentdomain.ErrAlreadyReviewed
		}
		if s.auditSvc != nil {
			return s.auditSvc.AuditLog(ctx, tx, "payment.rejected", "payment", payment.ID.String(), map[string]any{
				"invoice_id": payment.InvoiceID.String(),
				"amount":     payment.Amount.StringFixed(2),
				"notes":      notes,
			})
		}
		return nil
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	s.metrics.RecordLedgerApplied(ctx, "bank_transfer", "rejected")
	return s.reload(ctx, payment.ID.String())
}

func (s *Service) reviewable(ctx context.Context, id string) (*paymentdomain.Payment, error) {
	payment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.PaymentMethod != paymentdomain.MethodBankTransfer {
		return nil, paymentdomain.ErrNotBankTransfer
	}
	if payment.VerificationStatus != paymentdomain.VerificationPending {
		return nil, paymentdomain.ErrAlreadyReviewed
	}
	return payment, nil
}

// reload returns the payment as stored after a review.
func (s *Service) reload(ctx context.Context, id string) (paymentdomain.Payment, error) {
	payment, err := s.load(ctx, id)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	return *payment, nil
}

func (s *Service) load(ctx context.Context, id string) (*paymentdomain.Payment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	payment, err := s.repo.FindPayment(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Service) notify(ctx context.Context, receipt receiptdomain.Receipt) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.receipts.SendPaymentReceived(sendCtx, receipt); err != nil {
		if errors.Is(err, receiptdomain.ErrNoEmail) {
			return
		}
		s.log.Warn("failed to send payment received email",
			zap.String("receipt_id", receipt.ID.String()),
			zap.Error(err),
		)
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, paymentdomain.ErrInvalidID
	}
	return snowflake.ID(id), nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
