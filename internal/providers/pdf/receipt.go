package pdf

import (
	"context"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReceiptData carries display-ready strings; amounts are already formatted.
type ReceiptData struct {
	CompanyName           string
	CompanyAddress        string
	CompanyPhone          string
	CompanyEmail          string
	TaxRegistrationNumber string
	FooterNote            string

	ReceiptNumber string
	IssuedAt      string
	InvoiceNumber string
	OrderID       string
	PaymentMethod string

	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string

	Currency         string
	Amount           string
	InvoiceTotal     string
	PreviousBalance  string
	RemainingBalance string
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, receipt ReceiptData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	companyName := receipt.CompanyName
	if companyName == "" {
		companyName = "Receipt"
	}
	m.AddRow(20,
		text.NewCol(8, companyName, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "PAYMENT RECEIPT", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New(receipt.CompanyAddress, props.Text{Size: 9}),
			text.New(receipt.CompanyPhone, props.Text{Size: 9, Top: 5}),
			text.New(receipt.CompanyEmail, props.Text{Size: 9, Top: 10}),
			text.New(trnLine(receipt.TaxRegistrationNumber), props.Text{Size: 9, Top: 15}),
		),
		col.New(6).Add(
			text.New("Receipt number: "+receipt.ReceiptNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Date: "+receipt.IssuedAt, props.Text{Size: 9, Top: 5, Align: align.Right}),
			text.New("Invoice: "+receipt.InvoiceNumber, props.Text{Size: 9, Top: 10, Align: align.Right}),
			text.New("Order: "+receipt.OrderID, props.Text{Size: 9, Top: 15, Align: align.Right}),
		),
	)

	m.AddRow(4, line.NewCol(12))

	m.AddRow(26,
		col.New(12).Add(
			text.New("Received from", props.Text{Style: fontstyle.Bold}),
			text.New(receipt.CustomerName, props.Text{Top: 5}),
			text.New(receipt.CustomerAddress, props.Text{Size: 9, Top: 10}),
			text.New(receipt.CustomerPhone, props.Text{Size: 9, Top: 15}),
			text.New(receipt.CustomerEmail, props.Text{Size: 9, Top: 20}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, receipt.Currency+" "+receipt.Amount+" received by "+receipt.PaymentMethod, props.Text{
			Size:  13,
			Style: fontstyle.Bold,
			Top:   4,
		}),
	)

	rows := []struct{ label, value string }{
		{"Invoice total", receipt.InvoiceTotal},
		{"Balance before payment", receipt.PreviousBalance},
		{"Amount paid", receipt.Amount},
		{"Remaining balance", receipt.RemainingBalance},
	}
	for i, r := range rows {
		style := props.Text{Size: 10}
		if i == len(rows)-1 {
			style.Style = fontstyle.Bold
		}
		valueStyle := style
		valueStyle.Align = align.Right
		m.AddRow(8,
			col.New(4),
			text.NewCol(5, r.label, style),
			text.NewCol(3, receipt.Currency+" "+r.value, valueStyle),
		)
	}

	if receipt.FooterNote != "" {
		m.AddRow(20,
			text.NewCol(12, receipt.FooterNote, props.Text{Size: 8, Top: 10, Align: align.Center}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func trnLine(trn string) string {
	if trn == "" {
		return ""
	}
	return "TRN: " + trn
}
