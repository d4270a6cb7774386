package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
)

type CreateSiteVisitRequest struct {
	CustomerID  string          `json:"customer_id"`
	Address     string          `json:"address"`
	ScheduledAt *time.Time      `json:"scheduled_at"`
	FeeAmount   decimal.Decimal `json:"fee_amount"`
	Notes       string          `json:"notes"`
}

type ListSiteVisitRequest struct {
	pagination.Pagination
	CustomerID string `form:"customer_id"`
	Status     string `form:"status"`
}

type ListSiteVisitResponse struct {
	pagination.PageInfo
	SiteVisits []SiteVisit `json:"site_visits"`
}

type CreateBookingRequest struct {
	CustomerName  string     `json:"customer_name"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email"`
	Address       string     `json:"address"`
	PreferredDate *time.Time `json:"preferred_date"`
}

type CreateBookingResponse struct {
	BookingID   string          `json:"booking_id"`
	SiteVisitID string          `json:"site_visit_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

type Service interface {
	Create(ctx context.Context, req CreateSiteVisitRequest) (SiteVisit, error)
	Get(ctx context.Context, id string) (SiteVisit, error)
	List(ctx context.Context, req ListSiteVisitRequest) (ListSiteVisitResponse, error)
	// CreateBooking records a public booking together with the site visit it
	// will pay for.
	CreateBooking(ctx context.Context, req CreateBookingRequest) (CreateBookingResponse, error)
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPhone    = errors.New("invalid_phone")
	ErrNotFound        = errors.New("site_visit_not_found")
	ErrBookingNotFound = errors.New("booking_not_found")
)
