package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/clock"
	invoicedomain "github.com/smallbiznis/glazeops/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sheetName  = "Payments"
	dateLayout = "2006-01-02"
)

var headers = []string{
	"Payment Date", "Invoice", "Order", "Amount", "Currency", "Method",
	"Gateway", "Reference", "Status", "Verified At", "Notes",
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     paymentdomain.Repository
	Invoices invoicedomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     paymentdomain.Repository
	invoices invoicedomain.Repository
}

func NewService(p Params) paymentdomain.ExportService {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.export"),
		clock:    p.Clock,
		repo:     p.Repo,
		invoices: p.Invoices,
	}
}

// Export renders the filtered payments as an xlsx workbook. The to date is
// inclusive.
func (s *Service) Export(ctx context.Context, req paymentdomain.ExportRequest) (paymentdomain.Document, error) {
	filter, err := buildFilter(req)
	if err != nil {
		return paymentdomain.Document{}, err
	}
	items, err := s.repo.ListPayments(ctx, s.db, filter)
	if err != nil {
		return paymentdomain.Document{}, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn("failed to close workbook", zap.Error(err))
		}
	}()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return paymentdomain.Document{}, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return paymentdomain.Document{}, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return paymentdomain.Document{}, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return paymentdomain.Document{}, err
	}

	invoices := map[snowflake.ID]*invoicedomain.Invoice{}
	for i, payment := range items {
		if payment == nil {
			continue
		}
		invoice, ok := invoices[payment.InvoiceID]
		if !ok {
			invoice, err = s.invoices.FindByID(ctx, s.db, payment.InvoiceID)
			if err != nil {
				return paymentdomain.Document{}, err
			}
			invoices[payment.InvoiceID] = invoice
		}

		var invoiceNumber, orderID string
		if invoice != nil {
			invoiceNumber = invoice.InvoiceNumber
			orderID = invoice.OrderID
		}
		amount, _ := payment.Amount.Float64()
		row := []any{
			payment.PaymentDate.UTC().Format(dateLayout),
			invoiceNumber,
			orderID,
			amount,
			payment.Currency,
			payment.PaymentMethod,
			payment.Gateway,
			reference(payment),
			payment.VerificationStatus,
			formatTime(payment.VerifiedAt),
			deref(payment.VerificationNotes),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return paymentdomain.Document{}, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return paymentdomain.Document{}, err
	}
	return paymentdomain.Document{
		FileName: fmt.Sprintf("payments-%s.xlsx", s.clock.Now().UTC().Format("20060102-150405")),
		Content:  buf.Bytes(),
	}, nil
}

func buildFilter(req paymentdomain.ExportRequest) (paymentdomain.PaymentFilter, error) {
	filter := paymentdomain.PaymentFilter{
		PaymentMethod:      strings.TrimSpace(req.Method),
		VerificationStatus: strings.ToLower(strings.TrimSpace(req.Status)),
	}
	switch filter.VerificationStatus {
	case "", paymentdomain.VerificationPending, paymentdomain.VerificationVerified, paymentdomain.VerificationRejected:
	default:
		return filter, paymentdomain.ErrInvalidStatus
	}

	if from := strings.TrimSpace(req.From); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return filter, paymentdomain.ErrInvalidDateRange
		}
		filter.From = &t
	}
	if to := strings.TrimSpace(req.To); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return filter, paymentdomain.ErrInvalidDateRange
		}
		end := t.AddDate(0, 0, 1)
		filter.To = &end
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return filter, paymentdomain.ErrInvalidDateRange
	}
	return filter, nil
}

func reference(payment *paymentdomain.Payment) string {
	if payment.ExternalReference != nil {
		return *payment.ExternalReference
	}
	if value, ok := payment.Metadata["reference"].(string); ok {
		return value
	}
	return ""
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
