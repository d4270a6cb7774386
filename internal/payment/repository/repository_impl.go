package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertWebhookLog(ctx context.Context, db *gorm.DB, log *domain.WebhookLog) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO stripe_webhooks (
			id, gateway, event_id, event_type, payload, processed,
			error_message, attempts, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (gateway, event_id) DO NOTHING`,
		log.ID,
		log.Gateway,
		log.EventID,
		log.EventType,
		log.Payload,
		log.Processed,
		log.ErrorMessage,
		log.Attempts,
		log.CreatedAt,
		log.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindWebhookLog(ctx context.Context, db *gorm.DB, gateway, eventID string) (*domain.WebhookLog, error) {
	var item domain.WebhookLog
	err := db.WithContext(ctx).Raw(
		`SELECT id, gateway, event_id, event_type, payload, processed,
			error_message, attempts, created_at, updated_at
		 FROM stripe_webhooks
		 WHERE gateway = ? AND event_id = ?
		 LIMIT 1`,
		gateway,
		eventID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) IncrementWebhookAttempts(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int, error) {
	var attempts int
	err := db.WithContext(ctx).Raw(
		`UPDATE stripe_webhooks
		 SET attempts = attempts + 1, updated_at = ?
		 WHERE id = ?
		 RETURNING attempts`,
		at,
		id,
	).Scan(&attempts).Error
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

func (r *repo) MarkWebhookProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE stripe_webhooks
		 SET processed = TRUE, error_message = NULL, updated_at = ?
		 WHERE id = ?`,
		at,
		id,
	).Error
}

func (r *repo) MarkWebhookFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE stripe_webhooks
		 SET processed = FALSE, error_message = ?, updated_at = ?
		 WHERE id = ?`,
		message,
		at,
		id,
	).Error
}

const paymentColumns = `id, invoice_id, amount, currency, payment_date, payment_method, gateway,
	external_reference, charge_id, verification_status, verified_by, verified_at,
	verification_notes, proof_attachment_id, submitted_by, metadata, created_at`

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (gateway, external_reference) DO NOTHING`,
		payment.ID,
		payment.InvoiceID,
		payment.Amount,
		payment.Currency,
		payment.PaymentDate,
		payment.PaymentMethod,
		payment.Gateway,
		payment.ExternalReference,
		payment.ChargeID,
		payment.VerificationStatus,
		payment.VerifiedBy,
		payment.VerifiedAt,
		payment.VerificationNotes,
		payment.ProofAttachmentID,
		payment.SubmittedBy,
		payment.Metadata,
		payment.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindPayment(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, filter domain.PaymentFilter) ([]*domain.Payment, error) {
	var items []*domain.Payment
	stmt := db.WithContext(ctx).Model(&domain.Payment{})
	if filter.InvoiceID != 0 {
		stmt = stmt.Where("invoice_id = ?", filter.InvoiceID)
	}
	if filter.VerificationStatus != "" {
		stmt = stmt.Where("verification_status = ?", filter.VerificationStatus)
	}
	if filter.PaymentMethod != "" {
		stmt = stmt.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.From != nil {
		stmt = stmt.Where("payment_date >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("payment_date < ?", *filter.To)
	}
	if filter.After > 0 {
		stmt = stmt.Where("id < ?", filter.After)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Review(ctx context.Context, db *gorm.DB, update domain.ReviewUpdate) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET verification_status = ?, verified_by = ?, verified_at = ?, verification_notes = ?
		 WHERE id = ? AND verification_status = ?`,
		update.Status,
		update.ReviewerID,
		update.ReviewedAt,
		update.Notes,
		update.ID,
		domain.VerificationPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
