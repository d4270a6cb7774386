package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Receipt is written once when a payment is applied to an invoice and is
// never updated afterwards.
type Receipt struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	ReceiptNumber    string          `json:"receipt_number"`
	PaymentID        snowflake.ID    `json:"payment_id"`
	InvoiceID        snowflake.ID    `json:"invoice_id"`
	OrderID          string          `json:"order_id"`
	CustomerID       snowflake.ID    `json:"customer_id"`
	Amount           decimal.Decimal `json:"amount"`
	InvoiceTotal     decimal.Decimal `json:"invoice_total"`
	PreviousBalance  decimal.Decimal `json:"previous_balance"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Currency         string          `json:"currency"`
	PaymentMethod    string          `json:"payment_method"`
	IssuedAt         time.Time       `json:"issued_at"`
}

func (Receipt) TableName() string { return "receipts" }
