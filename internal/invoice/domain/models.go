package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	StatusUnpaid  = "Unpaid"
	StatusPartial = "Partial"
	StatusPaid    = "Paid"
)

type Invoice struct {
	ID                    snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceNumber         string          `json:"invoice_number"`
	CustomerID            snowflake.ID    `json:"customer_id"`
	OrderID               string          `json:"order_id"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	Balance               decimal.Decimal `json:"balance"`
	DepositPaid           decimal.Decimal `json:"deposit_paid"`
	PaymentBeforeDelivery decimal.Decimal `json:"payment_before_delivery"`
	Currency              string          `json:"currency"`
	Status                string          `json:"status"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// LedgerEntry is the invoice state around one applied payment.
type LedgerEntry struct {
	InvoiceID       snowflake.ID
	CustomerID      snowflake.ID
	OrderID         string
	Currency        string
	InvoiceTotal    decimal.Decimal
	PreviousBalance decimal.Decimal
	Balance         decimal.Decimal
	Status          string
}

// DeriveStatus is the status an invoice with the given figures must carry.
func DeriveStatus(total, balance, paid decimal.Decimal) string {
	switch {
	case !balance.IsPositive():
		return StatusPaid
	case paid.IsPositive() || balance.LessThan(total):
		return StatusPartial
	default:
		return StatusUnpaid
	}
}
