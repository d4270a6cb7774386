package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	VisitStatusScheduled = "scheduled"
	VisitStatusCompleted = "completed"
	VisitStatusCancelled = "cancelled"

	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"

	BookingStatusPending = "pending"
	BookingStatusPaid    = "paid"
)

type SiteVisit struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	CustomerID    snowflake.ID    `json:"customer_id"`
	Address       string          `json:"address"`
	ScheduledAt   *time.Time      `json:"scheduled_at,omitempty"`
	Status        string          `json:"status"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	PayPalOrderID *string         `gorm:"column:paypal_order_id" json:"paypal_order_id,omitempty"`
	PaymentStatus string          `json:"payment_status"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (SiteVisit) TableName() string { return "site_visits" }

// Booking is a site visit requested from the public booking form. It is paid
// through PayPal before the visit is confirmed.
type Booking struct {
	ID                  snowflake.ID    `gorm:"primaryKey" json:"id"`
	SiteVisitID         *snowflake.ID   `json:"site_visit_id,omitempty"`
	CustomerName        string          `json:"customer_name"`
	Phone               string          `json:"phone"`
	Email               string          `json:"email"`
	Address             string          `json:"address"`
	PreferredDate       *time.Time      `json:"preferred_date,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
	Status              string          `json:"status"`
	PayPalOrderID       *string         `gorm:"column:paypal_order_id" json:"paypal_order_id,omitempty"`
	PayPalTransactionID *string         `gorm:"column:paypal_transaction_id" json:"paypal_transaction_id,omitempty"`
	PaidAt              *time.Time      `json:"paid_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (Booking) TableName() string { return "public_site_visit_bookings" }
