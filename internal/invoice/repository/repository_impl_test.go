package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smallbiznis/glazeops/internal/invoice/domain"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestApplyGatewayPayment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	node := testutil.NewNode(t)
	repo := Provide()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	customerID := testutil.SeedCustomer(t, db, node, "Fatima")
	id := testutil.SeedInvoice(t, db, node, testutil.InvoiceSeed{
		CustomerID: customerID,
		OrderID:    "ORD-7",
		Total:      "100",
		Balance:    "100",
	})

	entry, err := repo.ApplyGatewayPayment(ctx, db, id, testutil.Dec(t, "40"), now)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, id, entry.InvoiceID)
	assert.Equal(t, customerID, entry.CustomerID)
	assert.Equal(t, "ORD-7", entry.OrderID)
	assert.True(t, entry.Balance.Equal(testutil.Dec(t, "60")), entry.Balance.String())
	assert.True(t, entry.PreviousBalance.Equal(testutil.Dec(t, "100")))
	assert.True(t, entry.InvoiceTotal.Equal(testutil.Dec(t, "100")))
	assert.Equal(t, domain.StatusPartial, entry.Status)

	entry, err = repo.ApplyGatewayPayment(ctx, db, id, testutil.Dec(t, "60"), now)
	require.NoError(t, err)
	assert.True(t, entry.Balance.IsZero())
	assert.Equal(t, domain.StatusPaid, entry.Status)

	stored, err := repo.FindByID(ctx, db, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, stored.Status)
	assert.True(t, stored.Balance.IsZero())
}

func TestApplyGatewayPaymentOverpaysToPaid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	node := testutil.NewNode(t)
	repo := Provide()

	id := testutil.SeedInvoice(t, db, node, testutil.InvoiceSeed{
		CustomerID: testutil.SeedCustomer(t, db, node, "Omar"),
		Total:      "50",
		Balance:    "50",
	})

	entry, err := repo.ApplyGatewayPayment(context.Background(), db, id, testutil.Dec(t, "75.5"), time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, entry.Balance.Equal(testutil.Dec(t, "-25.5")))
	assert.Equal(t, domain.StatusPaid, entry.Status)
}

func TestApplyManualPayment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	node := testutil.NewNode(t)
	repo := Provide()
	ctx := context.Background()
	customerID := testutil.SeedCustomer(t, db, node, "Layla")

	// T=1000, D=400, P=100, balance 500.
	id := testutil.SeedInvoice(t, db, node, testutil.InvoiceSeed{
		CustomerID:            customerID,
		Total:                 "1000",
		Balance:               "500",
		DepositPaid:           "400",
		PaymentBeforeDelivery: "100",
		Status:                domain.StatusPartial,
	})

	entry, err := repo.ApplyManualPayment(ctx, db, id, testutil.Dec(t, "250"), time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, entry.Balance.Equal(testutil.Dec(t, "250")))
	assert.Equal(t, domain.StatusPartial, entry.Status)

	stored, err := repo.FindByID(ctx, db, id)
	require.NoError(t, err)
	assert.True(t, stored.PaymentBeforeDelivery.Equal(testutil.Dec(t, "350")))

	entry, err = repo.ApplyManualPayment(ctx, db, id, testutil.Dec(t, "250"), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, entry.Status)

	stored, err = repo.FindByID(ctx, db, id)
	require.NoError(t, err)
	assert.True(t, stored.PaymentBeforeDelivery.Equal(testutil.Dec(t, "600")))
	assert.True(t, stored.Balance.IsZero())
}

func TestApplyPaymentMissingInvoice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := Provide()

	entry, err := repo.ApplyGatewayPayment(context.Background(), db, 424242, testutil.Dec(t, "1"), time.Now().UTC())
	require.NoError(t, err)
	assert.Nil(t, entry)

	entry, err = repo.ApplyManualPayment(context.Background(), db, 424242, testutil.Dec(t, "1"), time.Now().UTC())
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestListPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	node := testutil.NewNode(t)
	repo := Provide()
	customerID := testutil.SeedCustomer(t, db, node, "Sara")
	for i := 0; i < 3; i++ {
		testutil.SeedInvoice(t, db, node, testutil.InvoiceSeed{CustomerID: customerID, Total: "10", Balance: "10"})
	}
	testutil.SeedInvoice(t, db, node, testutil.InvoiceSeed{CustomerID: customerID, Total: "10", Balance: "0", Status: domain.StatusPaid})

	items, err := repo.List(context.Background(), db, domain.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Greater(t, items[0].ID.Int64(), items[1].ID.Int64())

	items, err = repo.List(context.Background(), db, domain.ListFilter{Status: domain.StatusPaid})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return conn, mock
}

func TestApplyGatewayPaymentIsSingleStatement(t *testing.T) {
	db, mock := newMockDB(t)
	repo := Provide()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"invoice_id", "customer_id", "order_id", "currency", "invoice_total", "balance", "status"}).
		AddRow(int64(77), int64(5), "ORD-1", "AED", "100.00", "60.00", domain.StatusPartial)
	mock.ExpectQuery(`UPDATE invoices\s+SET balance = balance - \$1,\s+status = CASE WHEN balance - \$2 <= 0 THEN \$3 ELSE \$4 END,\s+updated_at = \$5\s+WHERE id = \$6\s+RETURNING`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), domain.StatusPaid, domain.StatusPartial, at, int64(77)).
		WillReturnRows(rows)

	entry, err := repo.ApplyGatewayPayment(context.Background(), db, 77, testutil.Dec(t, "40"), at)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.PreviousBalance.Equal(testutil.Dec(t, "100")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyManualPaymentIsSingleStatement(t *testing.T) {
	db, mock := newMockDB(t)
	repo := Provide()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE invoices\s+SET balance = balance - \$1,\s+payment_before_delivery = payment_before_delivery \+ \$2,\s+status = CASE WHEN deposit_paid \+ payment_before_delivery \+ \$3 >= total_amount`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), domain.StatusPaid, domain.StatusPartial, at, int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"invoice_id"}))

	entry, err := repo.ApplyManualPayment(context.Background(), db, 9, testutil.Dec(t, "10"), at)
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}
