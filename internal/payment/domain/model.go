package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	GatewayStripe = "stripe"
	GatewayPayPal = "paypal"

	MethodCash         = "Cash"
	MethodCard         = "Card"
	MethodBankTransfer = "Bank Transfer"
	MethodPayPal       = "PayPal"
	MethodStripe       = "Stripe"

	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// Payment is one amount applied, or awaiting review, against an invoice.
// Gateway payments are unique per (gateway, external_reference).
type Payment struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	InvoiceID          snowflake.ID      `json:"invoice_id"`
	Amount             decimal.Decimal   `json:"amount"`
	Currency           string            `json:"currency"`
	PaymentDate        time.Time         `json:"payment_date"`
	PaymentMethod      string            `json:"payment_method"`
	Gateway            string            `json:"gateway,omitempty"`
	ExternalReference  *string           `json:"external_reference,omitempty"`
	ChargeID           *string           `json:"charge_id,omitempty"`
	VerificationStatus string            `json:"verification_status"`
	VerifiedBy         *snowflake.ID     `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time        `json:"verified_at,omitempty"`
	VerificationNotes  *string           `json:"verification_notes,omitempty"`
	ProofAttachmentID  *snowflake.ID     `json:"proof_attachment_id,omitempty"`
	SubmittedBy        *snowflake.ID     `json:"submitted_by,omitempty"`
	Metadata           datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// WebhookLog records every inbound gateway event. Rows are inserted once and
// afterwards only processed, error_message and attempts change.
type WebhookLog struct {
	ID           snowflake.ID   `gorm:"primaryKey" json:"id"`
	Gateway      string         `json:"gateway"`
	EventID      string         `json:"event_id"`
	EventType    string         `json:"event_type"`
	Payload      datatypes.JSON `json:"payload"`
	Processed    bool           `json:"processed"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	Attempts     int            `json:"attempts"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (WebhookLog) TableName() string { return "stripe_webhooks" }

const (
	EventTypePaymentIntentSucceeded = "payment_intent.succeeded"
	EventTypePaymentIntentFailed    = "payment_intent.payment_failed"
	EventTypeChargeSucceeded        = "charge.succeeded"
	EventTypeChargeFailed           = "charge.failed"
	EventTypeChargeRefunded         = "charge.refunded"
)

// PaymentEvent is the gateway-neutral event parsed by adapters.
type PaymentEvent struct {
	Gateway           string
	EventID           string
	Type              string
	ProviderPaymentID string
	ChargeID          string
	Status            string
	ReceiptURL        string
	Amount            int64
	Currency          string
	OccurredAt        time.Time
	RawPayload        []byte
	InvoiceID         *snowflake.ID
}
