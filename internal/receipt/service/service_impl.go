package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/clock"
	customerdomain "github.com/smallbiznis/glazeops/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/glazeops/internal/invoice/domain"
	"github.com/smallbiznis/glazeops/internal/invoice/format"
	"github.com/smallbiznis/glazeops/internal/observability/metrics"
	"github.com/smallbiznis/glazeops/internal/providers/email"
	"github.com/smallbiznis/glazeops/internal/providers/pdf"
	"github.com/smallbiznis/glazeops/internal/receipt/domain"
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	"github.com/smallbiznis/glazeops/pkg/db/sequence"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const displayDate = "02 Jan 2006"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Invoices  invoicedomain.Service
	Customers customerdomain.Service
	Settings  settingsdomain.Accessor
	PDF       pdf.Provider
	Email     email.Provider
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	invoices  invoicedomain.Service
	customers customerdomain.Service
	settings  settingsdomain.Accessor
	pdf       pdf.Provider
	email     email.Provider
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("receipt.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		invoices:  p.Invoices,
		customers: p.Customers,
		settings:  p.Settings,
		pdf:       p.PDF,
		email:     p.Email,
		metrics:   p.Metrics,
	}
}

func (s *Service) Issue(ctx context.Context, tx *gorm.DB, req domain.IssueRequest) (domain.Receipt, error) {
	if req.PaymentID == 0 || req.Ledger.InvoiceID == 0 || !req.Amount.IsPositive() {
		return domain.Receipt{}, domain.ErrInvalidPayment
	}

	existing, err := s.repo.FindByPaymentID(ctx, tx, req.PaymentID)
	if err != nil {
		return domain.Receipt{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	seq, err := sequence.Next(ctx, tx, "receipt")
	if err != nil {
		return domain.Receipt{}, err
	}
	now := s.clock.Now()
	number, err := format.FormatNumber(format.DefaultReceiptNumberTemplate, now, seq)
	if err != nil {
		return domain.Receipt{}, err
	}

	receipt := domain.Receipt{
		ID:               s.genID.Generate(),
		ReceiptNumber:    number,
		PaymentID:        req.PaymentID,
		InvoiceID:        req.Ledger.InvoiceID,
		OrderID:          req.Ledger.OrderID,
		CustomerID:       req.Ledger.CustomerID,
		Amount:           req.Amount.Round(2),
		InvoiceTotal:     req.Ledger.InvoiceTotal,
		PreviousBalance:  req.Ledger.PreviousBalance,
		RemainingBalance: req.Ledger.Balance,
		Currency:         req.Ledger.Currency,
		PaymentMethod:    req.PaymentMethod,
		IssuedAt:         now,
	}
	if receipt.Currency == "" {
		receipt.Currency = "AED"
	}
	if err := s.repo.Insert(ctx, tx, &receipt); err != nil {
		return domain.Receipt{}, err
	}
	s.metrics.RecordReceiptIssued(ctx, receipt.PaymentMethod)
	return receipt, nil
}

func (s *Service) Get(ctx context.Context, rawID string) (domain.Receipt, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.Receipt{}, domain.ErrInvalidID
	}
	receipt, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Receipt{}, err
	}
	if receipt == nil {
		return domain.Receipt{}, domain.ErrNotFound
	}
	return *receipt, nil
}

func (s *Service) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]domain.Receipt, error) {
	items, err := s.repo.ListByInvoice(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Receipt, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) (domain.Document, error) {
	receipt, err := s.Get(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	data, err := s.documentData(ctx, receipt)
	if err != nil {
		return domain.Document{}, err
	}
	content, err := s.pdf.GenerateReceipt(ctx, data)
	if err != nil {
		s.log.Error("failed to render receipt pdf", zap.String("receipt_id", receipt.ID.String()), zap.Error(err))
		return domain.Document{}, err
	}
	return domain.Document{FileName: receipt.ReceiptNumber + ".pdf", Content: content}, nil
}

func (s *Service) SendPaymentReceived(ctx context.Context, receipt domain.Receipt) error {
	data, err := s.documentData(ctx, receipt)
	if err != nil {
		return err
	}
	if strings.TrimSpace(data.CustomerEmail) == "" {
		return domain.ErrNoEmail
	}
	return s.email.SendTemplate(ctx, []string{data.CustomerEmail}, "payment_received", map[string]any{
		"customer_name":     data.CustomerName,
		"company_name":      data.CompanyName,
		"company_phone":     data.CompanyPhone,
		"footer_note":       data.FooterNote,
		"amount":            data.Amount,
		"currency":          data.Currency,
		"invoice_number":    data.InvoiceNumber,
		"receipt_number":    data.ReceiptNumber,
		"payment_method":    data.PaymentMethod,
		"invoice_total":     data.InvoiceTotal,
		"remaining_balance": data.RemainingBalance,
		"issued_at":         data.IssuedAt,
	})
}

func (s *Service) documentData(ctx context.Context, receipt domain.Receipt) (pdf.ReceiptData, error) {
	brand, err := s.settings.Brand(ctx)
	if err != nil {
		return pdf.ReceiptData{}, err
	}
	data := pdf.ReceiptData{
		CompanyName:           brand.CompanyName,
		CompanyAddress:        brand.Address,
		CompanyPhone:          brand.Phone,
		CompanyEmail:          brand.Email,
		TaxRegistrationNumber: brand.TaxRegistrationNumber,
		FooterNote:            brand.FooterNote,
		ReceiptNumber:         receipt.ReceiptNumber,
		IssuedAt:              receipt.IssuedAt.Format(displayDate),
		OrderID:               receipt.OrderID,
		PaymentMethod:         receipt.PaymentMethod,
		Currency:              receipt.Currency,
		Amount:                receipt.Amount.StringFixed(2),
		InvoiceTotal:          receipt.InvoiceTotal.StringFixed(2),
		PreviousBalance:       receipt.PreviousBalance.StringFixed(2),
		RemainingBalance:      receipt.RemainingBalance.StringFixed(2),
	}

	invoice, err := s.invoices.Get(ctx, receipt.InvoiceID.String())
	switch {
	case err == nil:
		data.InvoiceNumber = invoice.InvoiceNumber
	case errors.Is(err, invoicedomain.ErrNotFound):
	default:
		return pdf.ReceiptData{}, err
	}

	customer, err := s.customers.GetByID(ctx, receipt.CustomerID.String())
	switch {
	case err == nil:
		data.CustomerName = customer.Name
		data.CustomerEmail = customer.Email
		data.CustomerPhone = customer.Phone
		data.CustomerAddress = customer.Address
	case errors.Is(err, customerdomain.ErrNotFound):
	default:
		return pdf.ReceiptData{}, err
	}
	return data, nil
}
