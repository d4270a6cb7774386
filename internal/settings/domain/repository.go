package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository reads and writes the single-row settings tables. Find methods
// return nil when no row exists yet.
type Repository interface {
	FindPayPal(ctx context.Context, db *gorm.DB) (*PayPalSettings, error)
	UpsertPayPal(ctx context.Context, db *gorm.DB, row *PayPalSettings) error
	FindStripe(ctx context.Context, db *gorm.DB) (*StripeSettings, error)
	UpsertStripe(ctx context.Context, db *gorm.DB, row *StripeSettings) error
	FindBankTransfer(ctx context.Context, db *gorm.DB) (*BankTransferSettings, error)
	UpsertBankTransfer(ctx context.Context, db *gorm.DB, row *BankTransferSettings) error
	FindEmail(ctx context.Context, db *gorm.DB) (*EmailSettings, error)
	UpsertEmail(ctx context.Context, db *gorm.DB, row *EmailSettings) error
	FindBrand(ctx context.Context, db *gorm.DB) (*BrandSettings, error)
	UpsertBrand(ctx context.Context, db *gorm.DB, row *BrandSettings) error
	FindAI(ctx context.Context, db *gorm.DB) (*AISettings, error)
	UpsertAI(ctx context.Context, db *gorm.DB, row *AISettings) error

	// SetActive flips is_active on one of the gateway tables.
	SetActive(ctx context.Context, db *gorm.DB, table string, active bool, updatedAt time.Time) (bool, error)
}
