package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/internal/clock"
	invoicerepo "github.com/smallbiznis/glazeops/internal/invoice/repository"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/glazeops/internal/payment/repository"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

func TestExport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	node := testutil.NewNode(t)
	repo := paymentrepo.Provide()
	ctx := context.Background()
	fixed := clock.NewFakeClock(time.Date(2026, 5, 2, 16, 0, 0, 0, time.UTC))

	invoiceID := testutil.SeedInvoice(t, db, node, testutil.InvoiceSeed{
		CustomerID: testutil.SeedCustomer(t, db, node, "Noor"),
		Number:     "INV-2026-00042",
		OrderID:    "ORD-42",
		Total:      "900",
		Balance:    "900",
	})

	insert := func(day int, method, status string, ref *string, metadata datatypes.JSONMap) snowflake.ID {
		payment := paymentdomain.Payment{
			ID:                 node.Generate(),
			InvoiceID:          invoiceID,
			Amount:             decimal.RequireFromString("125.50"),
			Currency:           "AED",
			PaymentDate:        time.Date(2026, 4, day, 10, 0, 0, 0, time.UTC),
			PaymentMethod:      method,
			ExternalReference:  ref,
			VerificationStatus: status,
			Metadata:           metadata,
			CreatedAt:          fixed.Now(),
		}
		if ref != nil {
			payment.Gateway = paymentdomain.GatewayStripe
		}
		_, err := repo.InsertPayment(ctx, db, &payment)
		require.NoError(t, err)
		return payment.ID
	}
	intent := "pi_123"
	insert(3, paymentdomain.MethodStripe, paymentdomain.VerificationVerified, &intent, nil)
	insert(10, paymentdomain.MethodBankTransfer, paymentdomain.VerificationPending, nil, datatypes.JSONMap{"reference": "FT-1"})
	insert(20, paymentdomain.MethodBankTransfer, paymentdomain.VerificationVerified, nil, nil)

	svc := NewService(Params{
		DB:       db,
		Log:      testutil.Logger(),
		Clock:    fixed,
		Repo:     repo,
		Invoices: invoicerepo.Provide(),
	})

	doc, err := svc.Export(ctx, paymentdomain.ExportRequest{From: "2026-04-01", To: "2026-04-10", Method: paymentdomain.MethodBankTransfer})
	require.NoError(t, err)
	assert.Equal(t, "payments-20260502-160000.xlsx", doc.FileName)

	f, err := excelize.OpenReader(bytes.NewReader(doc.Content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "2026-04-10", rows[1][0])
	assert.Equal(t, "INV-2026-00042", rows[1][1])
	assert.Equal(t, "ORD-42", rows[1][2])
	assert.Equal(t, "125.5", rows[1][3])
	assert.Equal(t, "FT-1", rows[1][7])
	assert.Equal(t, paymentdomain.VerificationPending, rows[1][8])

	doc, err = svc.Export(ctx, paymentdomain.ExportRequest{})
	require.NoError(t, err)
	f2, err := excelize.OpenReader(bytes.NewReader(doc.Content))
	require.NoError(t, err)
	defer f2.Close()
	rows, err = f2.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestExportRejectsBadFilters(t *testing.T) {
	svc := NewService(Params{
		DB:       testutil.SetupTestDB(t),
		Log:      testutil.Logger(),
		Clock:    clock.NewFakeClock(time.Now()),
		Repo:     paymentrepo.Provide(),
		Invoices: invoicerepo.Provide(),
	})
	ctx := context.Background()

	_, err := svc.Export(ctx, paymentdomain.ExportRequest{From: "04/01/2026"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidDateRange)

	_, err = svc.Export(ctx, paymentdomain.ExportRequest{From: "2026-04-10", To: "2026-04-01"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidDateRange)

	_, err = svc.Export(ctx, paymentdomain.ExportRequest{Status: "approved"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidStatus)
}
