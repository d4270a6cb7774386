package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/glazeops/internal/invoice/domain"
	"gorm.io/gorm"
)

// IssueRequest describes a payment that has just been applied to the ledger.
type IssueRequest struct {
	PaymentID     snowflake.ID
	PaymentMethod string
	Amount        decimal.Decimal
	Ledger        invoicedomain.LedgerEntry
}

type Document struct {
	FileName string
	Content  []byte
}

type Service interface {
	// Issue runs inside the caller's transaction so the receipt commits or
	// rolls back together with the ledger update it records.
	Issue(ctx context.Context, tx *gorm.DB, req IssueRequest) (Receipt, error)
	Get(ctx context.Context, id string) (Receipt, error)
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]Receipt, error)
	RenderPDF(ctx context.Context, id string) (Document, error)
	// SendPaymentReceived emails the customer a confirmation for the receipt.
	SendPaymentReceived(ctx context.Context, receipt Receipt) error
}

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidPayment = errors.New("invalid_payment")
	ErrNotFound       = errors.New("receipt_not_found")
	ErrNoEmail        = errors.New("customer_has_no_email")
)
