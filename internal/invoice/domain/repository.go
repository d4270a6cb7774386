package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ListFilter struct {
	CustomerID snowflake.ID
	Status     string
	After      int64
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)

	// ApplyGatewayPayment decrements the balance by amount and derives the
	// status from the new balance in a single statement.
	ApplyGatewayPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, amount decimal.Decimal, at time.Time) (*LedgerEntry, error)
	// ApplyManualPayment decrements the balance, adds amount to
	// payment_before_delivery and derives the status from
	// deposit_paid + payment_before_delivery + amount against the total, in a
	// single statement.
	ApplyManualPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, amount decimal.Decimal, at time.Time) (*LedgerEntry, error)
}
