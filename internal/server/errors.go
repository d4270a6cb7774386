package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	attachmentdomain "github.com/smallbiznis/glazeops/internal/attachment/domain"
	auditdomain "github.com/smallbiznis/glazeops/internal/audit/domain"
	authdomain "github.com/smallbiznis/glazeops/internal/auth/domain"
	"github.com/smallbiznis/glazeops/internal/authorization"
	"github.com/smallbiznis/glazeops/internal/currency"
	customerdomain "github.com/smallbiznis/glazeops/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/glazeops/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	receiptdomain "github.com/smallbiznis/glazeops/internal/receipt/domain"
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	sitevisitdomain "github.com/smallbiznis/glazeops/internal/sitevisit/domain"
	whatsappdomain "github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
)

var validationErrors = []error{
	ErrInvalidRequest,
	customerdomain.ErrInvalidName,
	customerdomain.ErrInvalidEmail,
	customerdomain.ErrInvalidPhone,
	customerdomain.ErrInvalidID,
	sitevisitdomain.ErrInvalidID,
	sitevisitdomain.ErrInvalidCustomer,
	sitevisitdomain.ErrInvalidAmount,
	sitevisitdomain.ErrInvalidName,
	sitevisitdomain.ErrInvalidPhone,
	invoicedomain.ErrInvalidID,
	invoicedomain.ErrInvalidCustomer,
	invoicedomain.ErrInvalidAmount,
	invoicedomain.ErrInvalidStatus,
	receiptdomain.ErrInvalidID,
	receiptdomain.ErrInvalidPayment,
	attachmentdomain.ErrInvalidOwner,
	attachmentdomain.ErrEmptyFile,
	attachmentdomain.ErrFileTooLarge,
	attachmentdomain.ErrUnsupportedType,
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrInvalidID,
	paymentdomain.ErrInvalidPayload,
	paymentdomain.ErrInvalidEvent,
	paymentdomain.ErrInvalidSignature,
	paymentdomain.ErrSignatureExpired,
	paymentdomain.ErrMissingInvoiceID,
	paymentdomain.ErrNotesRequired,
	paymentdomain.ErrNotBankTransfer,
	paymentdomain.ErrNoProof,
	paymentdomain.ErrInvalidDateRange,
	paymentdomain.ErrInvalidStatus,
	paymentdomain.ErrCaptureIncomplete,
	currency.ErrAmountTooSmall,
	currency.ErrUnsupportedPair,
	settingsdomain.ErrInvalidEnvironment,
	settingsdomain.ErrInvalidSecretKey,
	settingsdomain.ErrInvalidProvider,
	settingsdomain.ErrInvalidTemperature,
	settingsdomain.ErrInvalidSMTP,
	settingsdomain.ErrInvalidEmail,
	whatsappdomain.ErrInvalidID,
	whatsappdomain.ErrEmptyBody,
	whatsappdomain.ErrBodyTooLong,
	whatsappdomain.ErrInvalidTitle,
	whatsappdomain.ErrInvalidName,
	whatsappdomain.ErrInvalidPhone,
	whatsappdomain.ErrInvalidTemplate,
	whatsappdomain.ErrEmptyList,
	whatsappdomain.ErrInvalidSignature,
	whatsappdomain.ErrInvalidPayload,
	whatsappdomain.ErrEmptyContext,
	whatsappdomain.ErrContextTooLong,
	whatsappdomain.ErrUnsupportedProvider,
	whatsappdomain.ErrConversationMismatch,
	authdomain.ErrInvalidRole,
	authdomain.ErrWeakPassword,
	auditdomain.ErrInvalidPageToken,
}

var unauthorizedErrors = []error{
	ErrUnauthorized,
	authdomain.ErrInvalidCredentials,
	authdomain.ErrInvalidToken,
	authdomain.ErrTokenExpired,
	authdomain.ErrUserInactive,
	authorization.ErrInvalidActor,
}

var forbiddenErrors = []error{
	ErrForbidden,
	authorization.ErrForbidden,
	whatsappdomain.ErrInvalidVerifyToken,
}

var notFoundErrors = []error{
	ErrNotFound,
	gorm.ErrRecordNotFound,
	authdomain.ErrUserNotFound,
	customerdomain.ErrNotFound,
	sitevisitdomain.ErrNotFound,
	sitevisitdomain.ErrBookingNotFound,
	invoicedomain.ErrNotFound,
	receiptdomain.ErrNotFound,
	attachmentdomain.ErrNotFound,
	paymentdomain.ErrProviderNotFound,
	paymentdomain.ErrInvoiceNotFound,
	paymentdomain.ErrPaymentNotFound,
	paymentdomain.ErrSiteVisitNotFound,
	paymentdomain.ErrBookingNotFound,
	whatsappdomain.ErrCustomerNotFound,
	whatsappdomain.ErrConversationNotFound,
	whatsappdomain.ErrQuickReplyNotFound,
	whatsappdomain.ErrListNotFound,
	whatsappdomain.ErrContactNotFound,
	whatsappdomain.ErrCampaignNotFound,
}

var conflictErrors = []error{
	ErrConflict,
	authdomain.ErrUserExists,
	customerdomain.ErrHasInvoices,
	paymentdomain.ErrAlreadyReviewed,
	paymentdomain.ErrBookingPaid,
	whatsappdomain.ErrListInUse,
	whatsappdomain.ErrContactExists,
	whatsappdomain.ErrCampaignNotSendable,
}

// configurationErrors are failures an admin fixes in settings rather than in
// the request.
var configurationErrors = []error{
	settingsdomain.ErrNotConfigured,
	settingsdomain.ErrGatewayDisabled,
	settingsdomain.ErrInvalidCredentials,
	settingsdomain.ErrEncryptionKeyMissing,
	attachmentdomain.ErrStorageNotConfigured,
	whatsappdomain.ErrSenderNotConfigured,
	receiptdomain.ErrNoEmail,
	authdomain.ErrNotConfigured,
}

var upstreamErrors = []error{
	paymentdomain.ErrUpstream,
	whatsappdomain.ErrSendFailed,
	whatsappdomain.ErrAssistantUnavailable,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// abortFunctionError answers the checkout and webhook routes with the flat
// {"error": "..."} body their callers expect.
func abortFunctionError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, payload := mapError(err)
	message := payload.Message
	if len(payload.Errors) > 0 {
		message = payload.Errors[0].Message
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if matched, ok := matchError(err, validationErrors); ok {
		code := matched.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	if _, ok := matchError(err, unauthorizedErrors); ok {
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	}
	if _, ok := matchError(err, forbiddenErrors); ok {
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	}
	if _, ok := matchError(err, notFoundErrors); ok {
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	}
	if matched, ok := matchError(err, conflictErrors); ok {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: matched.Error(),
		}
	}
	if matched, ok := matchError(err, configurationErrors); ok {
		return http.StatusPreconditionFailed, errorPayload{
			Type:    "configuration_error",
			Message: matched.Error(),
		}
	}
	if matched, ok := matchError(err, upstreamErrors); ok {
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: matched.Error(),
		}
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Message
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func matchError(err error, candidates []error) (error, bool) {
	for _, candidate := range candidates {
		if errors.Is(err, candidate) {
			return candidate, true
		}
	}
	return nil, false
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_signature", "signature_expired":
		return "invalid signature"
	case "capture_not_completed":
		return "payment capture not completed"
	case "converted_amount_too_small":
		return "amount too small after currency conversion"
	default:
		return "invalid value"
	}
}
