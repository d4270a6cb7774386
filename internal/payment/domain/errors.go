package domain

import "errors"

var (
	ErrProviderNotFound      = errors.New("payment_provider_not_found")
	ErrInvalidConfig         = errors.New("invalid_payment_config")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrSignatureExpired      = errors.New("signature_expired")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrRetryBudgetExhausted  = errors.New("retry_budget_exhausted")
	ErrUnhandledEventType    = errors.New("unhandled event type")
	ErrMissingInvoiceID      = errors.New("missing invoice_id in payment metadata")
	ErrInvoiceNotFound       = errors.New("invoice_not_found")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidID             = errors.New("invalid_id")
	ErrPaymentNotFound       = errors.New("payment_not_found")
	ErrAlreadyReviewed       = errors.New("payment_already_reviewed")
	ErrNotesRequired         = errors.New("notes_required")
	ErrNotBankTransfer       = errors.New("not_bank_transfer")
	ErrNoProof               = errors.New("payment_has_no_proof")
	ErrInvalidDateRange      = errors.New("invalid_date_range")
	ErrInvalidStatus         = errors.New("invalid_verification_status")

	ErrSiteVisitNotFound = errors.New("site_visit_not_found")
	ErrBookingNotFound   = errors.New("booking_not_found")
	ErrBookingPaid       = errors.New("booking_already_paid")
	ErrCaptureIncomplete = errors.New("capture_not_completed")
	ErrUpstream          = errors.New("payment_gateway_error")
)
