package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/internal/clock"
	customerrepo "github.com/smallbiznis/glazeops/internal/customer/repository"
	customerservice "github.com/smallbiznis/glazeops/internal/customer/service"
	"github.com/smallbiznis/glazeops/internal/invoice/domain"
	"github.com/smallbiznis/glazeops/internal/invoice/repository"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	node := testutil.NewNode(t)
	fixed := clock.NewFakeClock(time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC))
	customers := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   testutil.Logger(),
		GenID: node,
		Clock: fixed,
		Repo:  customerrepo.Provide(),
	})
	return New(Params{
		DB:        db,
		Log:       testutil.Logger(),
		GenID:     node,
		Clock:     fixed,
		Repo:      repository.Provide(),
		Customers: customers,
	}), db
}

func TestCreateNumbersSequentially(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	customerID := testutil.SeedCustomer(t, db, testutil.NewNode(t), "Khalid")

	first, err := svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID:  customerID.String(),
		OrderID:     "ORD-100",
		TotalAmount: decimal.NewFromInt(1200),
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00001", first.InvoiceNumber)
	assert.Equal(t, domain.StatusUnpaid, first.Status)
	assert.Equal(t, "AED", first.Currency)
	assert.True(t, first.Balance.Equal(decimal.NewFromInt(1200)))

	second, err := svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID:  customerID.String(),
		TotalAmount: decimal.NewFromInt(800),
		DepositPaid: decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00002", second.InvoiceNumber)
	assert.Equal(t, domain.StatusPartial, second.Status)
	assert.True(t, second.Balance.Equal(decimal.NewFromInt(600)))

	got, err := svc.Get(ctx, second.ID.String())
	require.NoError(t, err)
	assert.Equal(t, second.InvoiceNumber, got.InvoiceNumber)
	assert.True(t, got.DepositPaid.Equal(decimal.NewFromInt(200)))
}

func TestCreateValidates(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	customerID := testutil.SeedCustomer(t, db, testutil.NewNode(t), "Khalid").String()

	_, err := svc.Create(ctx, domain.CreateInvoiceRequest{CustomerID: "404", TotalAmount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = svc.Create(ctx, domain.CreateInvoiceRequest{CustomerID: customerID})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID:  customerID,
		TotalAmount: decimal.NewFromInt(100),
		DepositPaid: decimal.NewFromInt(101),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	assert.Zero(t, testutil.Count(t, db, "invoices", ""))
}

func TestCreateFullyPaidByDeposit(t *testing.T) {
	svc, db := newTestService(t)
	customerID := testutil.SeedCustomer(t, db, testutil.NewNode(t), "Mona")

	inv, err := svc.Create(context.Background(), domain.CreateInvoiceRequest{
		CustomerID:  customerID.String(),
		TotalAmount: decimal.NewFromInt(300),
		DepositPaid: decimal.NewFromInt(300),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, inv.Status)
}

func TestGetErrors(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.Get(context.Background(), "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFilters(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	node := testutil.NewNode(t)
	a := testutil.SeedCustomer(t, db, node, "A")
	b := testutil.SeedCustomer(t, db, node, "B")
	testutil.SeedInvoice(t, db, node, testutil.InvoiceSeed{CustomerID: a, Total: "10", Balance: "10"})
	testutil.SeedInvoice(t, db, node, testutil.InvoiceSeed{CustomerID: a, Total: "10", Balance: "0", Status: domain.StatusPaid})
	testutil.SeedInvoice(t, db, node, testutil.InvoiceSeed{CustomerID: b, Total: "10", Balance: "10"})

	resp, err := svc.List(ctx, domain.ListInvoiceRequest{CustomerID: a.String()})
	require.NoError(t, err)
	assert.Len(t, resp.Invoices, 2)

	resp, err = svc.List(ctx, domain.ListInvoiceRequest{Status: domain.StatusPaid})
	require.NoError(t, err)
	assert.Len(t, resp.Invoices, 1)

	resp, err = svc.List(ctx, domain.ListInvoiceRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, resp.Invoices, 2)
	assert.True(t, resp.HasMore)

	_, err = svc.List(ctx, domain.ListInvoiceRequest{Status: "Overdue"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
