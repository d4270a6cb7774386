package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
)

type CreateInvoiceRequest struct {
	CustomerID  string          `json:"customer_id"`
	OrderID     string          `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	DepositPaid decimal.Decimal `json:"deposit_paid"`
	Currency    string          `json:"currency"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	CustomerID string `form:"customer_id"`
	Status     string `form:"status"`
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	Get(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrNotFound        = errors.New("invoice_not_found")
)
