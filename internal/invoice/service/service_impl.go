package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/internal/clock"
	customerdomain "github.com/smallbiznis/glazeops/internal/customer/domain"
	"github.com/smallbiznis/glazeops/internal/invoice/domain"
	"github.com/smallbiznis/glazeops/internal/invoice/format"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
	"github.com/smallbiznis/glazeops/pkg/db/sequence"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Customers customerdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	customers customerdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		customers: p.Customers,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	customer, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) || errors.Is(err, customerdomain.ErrInvalidID) {
			return domain.Invoice{}, domain.ErrInvalidCustomer
		}
		return domain.Invoice{}, err
	}

	total := req.TotalAmount.Round(2)
	deposit := req.DepositPaid.Round(2)
	if !total.IsPositive() || deposit.IsNegative() || deposit.GreaterThan(total) {
		return domain.Invoice{}, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "AED"
	}

	now := s.clock.Now()
	balance := total.Sub(deposit)
	invoice := domain.Invoice{
		ID:                    s.genID.Generate(),
		CustomerID:            customer.ID,
		OrderID:               strings.TrimSpace(req.OrderID),
		TotalAmount:           total,
		Balance:               balance,
		DepositPaid:           deposit,
		PaymentBeforeDelivery: decimal.Zero,
		Currency:              currency,
		Status:                domain.DeriveStatus(total, balance, deposit),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := sequence.Next(ctx, tx, "invoice")
		if err != nil {
			return err
		}
		if invoice.InvoiceNumber, err = format.FormatNumber(format.DefaultInvoiceNumberTemplate, now, seq); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, &invoice)
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) Get(ctx context.Context, rawID string) (domain.Invoice, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.Invoice{}, domain.ErrInvalidID
	}
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	after, err := req.After()
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}
	filter := domain.ListFilter{After: after, Limit: req.Limit()}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = id
	}
	switch req.Status {
	case "", domain.StatusUnpaid, domain.StatusPartial, domain.StatusPaid:
		filter.Status = req.Status
	default:
		return domain.ListInvoiceResponse{}, domain.ErrInvalidStatus
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}
	items, pageInfo := pagination.Page(items, filter.Limit, func(inv *domain.Invoice) int64 { return inv.ID.Int64() })
	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		invoices = append(invoices, *item)
	}
	return domain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}
