package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type PaymentFilter struct {
	InvoiceID          snowflake.ID
	VerificationStatus string
	PaymentMethod      string
	From               *time.Time
	To                 *time.Time
	After              int64
	Limit              int
}

// ReviewUpdate is applied only while the payment is still pending.
type ReviewUpdate struct {
	ID         snowflake.ID
	Status     string
	ReviewerID *snowflake.ID
	Notes      *string
	ReviewedAt time.Time
}

type Repository interface {
	InsertWebhookLog(ctx context.Context, db *gorm.DB, log *WebhookLog) (bool, error)
	FindWebhookLog(ctx context.Context, db *gorm.DB, gateway, eventID string) (*WebhookLog, error)
	IncrementWebhookAttempts(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int, error)
	MarkWebhookProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	MarkWebhookFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, at time.Time) error

	// InsertPayment reports false when a payment with the same gateway and
	// external reference already exists.
	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) (bool, error)
	FindPayment(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	ListPayments(ctx context.Context, db *gorm.DB, filter PaymentFilter) ([]*Payment, error)
	Review(ctx context.Context, db *gorm.DB, update ReviewUpdate) (bool, error)
}
