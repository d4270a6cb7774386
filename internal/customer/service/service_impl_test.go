package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/customer/domain"
	"github.com/smallbiznis/glazeops/internal/customer/repository"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return New(Params{
		DB:    db,
		Log:   testutil.Logger(),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Date(2026, 1, 10, 7, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	}), db
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+971501234567", domain.NormalizePhone(" +971 50-123 4567 "))
	assert.Equal(t, "+971501234567", domain.NormalizePhone("00971501234567"))
	assert.Equal(t, "0501234567", domain.NormalizePhone("(050) 123 4567"))
	assert.Equal(t, "", domain.NormalizePhone("+"))
}

func TestCreateValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ahmed", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ahmed", Phone: "12"})
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)

	c, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ahmed", Email: "Ahmed@Example.com", Phone: "+971 50 123 4567"})
	require.NoError(t, err)
	assert.Equal(t, "ahmed@example.com", c.Email)
	assert.Equal(t, "+971501234567", c.Phone)

	got, err := svc.GetByID(ctx, c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
}

func TestListSearchAndPaging(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"Fatima Glass", "Omar Aluminium", "Fatima Windows"} {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: name})
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, domain.ListCustomerRequest{Query: "fatima"})
	require.NoError(t, err)
	assert.Len(t, resp.Customers, 2)

	first, err := svc.List(ctx, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Customers, 2)
	assert.Equal(t, "Fatima Windows", first.Customers[0].Name)
	assert.True(t, first.HasMore)

	second, err := svc.List(ctx, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.Equal(t, "Fatima Glass", second.Customers[0].Name)
}

func TestUpdateAndDelete(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Khalid"})
	require.NoError(t, err)

	notes := "prefers morning visits"
	updated, err := svc.Update(ctx, domain.UpdateCustomerRequest{ID: c.ID.String(), Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, "Khalid", updated.Name)

	testutil.SeedInvoice(t, db, testutil.NewNode(t), testutil.InvoiceSeed{CustomerID: c.ID, Total: "100", Balance: "100"})
	assert.ErrorIs(t, svc.Delete(ctx, c.ID.String()), domain.ErrHasInvoices)

	other, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Temp"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, other.ID.String()))
	_, err = svc.GetByID(ctx, other.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "abc"), domain.ErrInvalidID)
}

func TestFindOrCreateByPhone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.FindOrCreateByPhone(ctx, "971501112222", "")
	require.NoError(t, err)
	assert.Equal(t, "971501112222", first.Name)

	again, err := svc.FindOrCreateByPhone(ctx, "971 50 111 2222", "Someone")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}
