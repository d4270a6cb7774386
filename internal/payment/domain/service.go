package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
)

// WebhookService authenticates and dispatches inbound gateway webhooks.
type WebhookService interface {
	IngestWebhook(ctx context.Context, gateway string, payload []byte, headers http.Header) error
}

// Service applies parsed gateway events to the ledger and answers payment
// queries.
type Service interface {
	ProcessEvent(ctx context.Context, event *PaymentEvent) error
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]Payment, error)
}

type CreateOrderRequest struct {
	SiteVisitID string          `json:"site_visit_id"`
	Amount      decimal.Decimal `json:"amount"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

type CreateOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Links   []Link `json:"links"`
}

type CaptureOrderRequest struct {
	OrderID   string `json:"order_id"`
	BookingID string `json:"booking_id"`
}

type CaptureOrderResponse struct {
	Success   bool   `json:"success"`
	CaptureID string `json:"capture_id"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	BookingID string `json:"booking_id"`
}

// CaptureIncompleteError carries the gateway status of a capture that did not
// settle.
type CaptureIncompleteError struct {
	Status string
}

func (e *CaptureIncompleteError) Error() string {
	return "payment capture not completed: " + e.Status
}

func (e *CaptureIncompleteError) Is(target error) bool {
	return target == ErrCaptureIncomplete
}

// AsCaptureIncomplete extracts the gateway status from err.
func AsCaptureIncomplete(err error) (*CaptureIncompleteError, bool) {
	var target *CaptureIncompleteError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

type CheckoutService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error)
	CaptureOrder(ctx context.Context, req CaptureOrderRequest) (CaptureOrderResponse, error)
}

type SubmitBankTransferRequest struct {
	InvoiceID   string
	Amount      decimal.Decimal
	PaymentDate *time.Time
	Reference   string
	FileName    string
	Content     []byte
	SubmittedBy *snowflake.ID
}

type ListPaymentsRequest struct {
	pagination.Pagination
}

type ListPaymentsResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type ReviewRequest struct {
	PaymentID  string
	ReviewerID *snowflake.ID
	Notes      string
}

type ProofURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerificationService handles bank transfers that need an admin decision
// before they reach the ledger.
type VerificationService interface {
	SubmitBankTransfer(ctx context.Context, req SubmitBankTransferRequest) (Payment, error)
	ListPending(ctx context.Context, req ListPaymentsRequest) (ListPaymentsResponse, error)
	ProofURL(ctx context.Context, paymentID string) (ProofURL, error)
	Verify(ctx context.Context, req ReviewRequest) (Payment, error)
	Reject(ctx context.Context, req ReviewRequest) (Payment, error)
}

type ExportRequest struct {
	From   string `form:"from"`
	To     string `form:"to"`
	Method string `form:"method"`
	Status string `form:"status"`
}

type Document struct {
	FileName string
	Content  []byte
}

type ExportService interface {
	Export(ctx context.Context, req ExportRequest) (Document, error)
}
