package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/currency"
	"github.com/smallbiznis/glazeops/internal/payment/adapters/paypal"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	sitevisitdomain "github.com/smallbiznis/glazeops/internal/sitevisit/domain"
	sitevisitrepo "github.com/smallbiznis/glazeops/internal/sitevisit/repository"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/smallbiznis/glazeops/internal/testutil/ledgertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	created  []paypal.OrderRequest
	captures []string
	status   string
}

func (g *fakeGateway) CreateOrder(_ context.Context, req paypal.OrderRequest) (paypal.Order, error) {
	g.created = append(g.created, req)
	return paypal.Order{
		ID:     "ORDER-1",
		Status: "CREATED",
		Links:  []paymentdomain.Link{{Href: "https://paypal.test/approve", Rel: "approve"}},
	}, nil
}

func (g *fakeGateway) CaptureOrder(_ context.Context, orderID string) (paypal.Capture, error) {
	g.captures = append(g.captures, orderID)
	status := g.status
	if status == "" {
		status = paypal.StatusCompleted
	}
	return paypal.Capture{OrderID: orderID, Status: status, CaptureID: "CAP-1"}, nil
}

type fixture struct {
	env     *ledgertest.Env
	svc     paymentdomain.CheckoutService
	gateway *fakeGateway
	visits  sitevisitdomain.Repository
}

func newFixture(t *testing.T, gateway Gateway) fixture {
	t.Helper()
	env := ledgertest.New(t, clock.NewFakeClock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)))
	visits := sitevisitrepo.Provide()
	fake, _ := gateway.(*fakeGateway)
	svc := NewService(Params{
		DB:       env.DB,
		Log:      testutil.Logger(),
		Clock:    env.Clock,
		Visits:   visits,
		Gateway:  gateway,
		Rates:    currency.NewFixedRateProvider(config.NewStaticPaymentsConfigHolder(config.DefaultPaymentsConfig())),
		AuditSvc: env.Audit,
	})
	return fixture{env: env, svc: svc, gateway: fake, visits: visits}
}

func (f fixture) seedVisit(t *testing.T) snowflake.ID {
	t.Helper()
	now := f.env.Clock.Now()
	visit := sitevisitdomain.SiteVisit{
		ID:            f.env.Node.Generate(),
		CustomerID:    testutil.SeedCustomer(t, f.env.DB, f.env.Node, "Hassan"),
		Address:       "Villa 12, Jumeirah",
		Status:        sitevisitdomain.VisitStatusScheduled,
		FeeAmount:     decimal.NewFromInt(150),
		PaymentStatus: sitevisitdomain.PaymentStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.visits.InsertVisit(context.Background(), f.env.DB, &visit))
	return visit.ID
}

func (f fixture) seedBooking(t *testing.T, visitID *snowflake.ID) snowflake.ID {
	t.Helper()
	now := f.env.Clock.Now()
	booking := sitevisitdomain.Booking{
		ID:           f.env.Node.Generate(),
		SiteVisitID:  visitID,
		CustomerName: "Hassan",
		Phone:        "+971500000002",
		Amount:       decimal.NewFromInt(150),
		Status:       sitevisitdomain.BookingStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.visits.InsertBooking(context.Background(), f.env.DB, &booking))
	return booking.ID
}

func TestCreateOrderConvertsAndStoresOrder(t *testing.T) {
	f := newFixture(t, &fakeGateway{})
	ctx := context.Background()
	visitID := f.seedVisit(t)

	resp, err := f.svc.CreateOrder(ctx, paymentdomain.CreateOrderRequest{
		SiteVisitID: visitID.String(),
		Amount:      decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", resp.OrderID)
	assert.Equal(t, "CREATED", resp.Status)
	require.Len(t, resp.Links, 1)

	require.Len(t, f.gateway.created, 1)
	sent := f.gateway.created[0]
	assert.Equal(t, "USD", sent.Currency)
	assert.True(t, sent.Amount.Equal(decimal.NewFromInt(27)), sent.Amount.String())
	assert.Equal(t, visitID.String(), sent.CustomID)
	assert.Contains(t, sent.Description, "AED 100.00")

	visit, err := f.visits.FindVisit(ctx, f.env.DB, visitID)
	require.NoError(t, err)
	require.NotNil(t, visit.PayPalOrderID)
	assert.Equal(t, "ORDER-1", *visit.PayPalOrderID)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t, &fakeGateway{})
	ctx := context.Background()
	visitID := f.seedVisit(t)

	_, err := f.svc.CreateOrder(ctx, paymentdomain.CreateOrderRequest{SiteVisitID: visitID.String()})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = f.svc.CreateOrder(ctx, paymentdomain.CreateOrderRequest{SiteVisitID: "x", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidID)

	_, err = f.svc.CreateOrder(ctx, paymentdomain.CreateOrderRequest{SiteVisitID: "99", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, paymentdomain.ErrSiteVisitNotFound)

	_, err = f.svc.CreateOrder(ctx, paymentdomain.CreateOrderRequest{
		SiteVisitID: visitID.String(),
		Amount:      decimal.RequireFromString("0.01"),
	})
	assert.ErrorIs(t, err, currency.ErrAmountTooSmall)
	assert.Empty(t, f.gateway.created)
}

func TestCreateOrderWithDisabledPayPalCreatesNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.env.Settings.PayPalErr = settingsdomain.ErrGatewayDisabled
	f.svc = NewService(Params{
		DB:      f.env.DB,
		Log:     testutil.Logger(),
		Clock:   f.env.Clock,
		Visits:  f.visits,
		Gateway: paypal.New(paypal.Params{Settings: f.env.Settings, Log: testutil.Logger()}),
		Rates:   currency.NewFixedRateProvider(config.NewStaticPaymentsConfigHolder(config.DefaultPaymentsConfig())),
	})
	visitID := f.seedVisit(t)

	_, err := f.svc.CreateOrder(context.Background(), paymentdomain.CreateOrderRequest{
		SiteVisitID: visitID.String(),
		Amount:      decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, settingsdomain.ErrGatewayDisabled)

	visit, err := f.visits.FindVisit(context.Background(), f.env.DB, visitID)
	require.NoError(t, err)
	assert.Nil(t, visit.PayPalOrderID)
}

func TestCaptureOrderMarksBookingAndVisitPaid(t *testing.T) {
	f := newFixture(t, &fakeGateway{})
	ctx := context.Background()
	visitID := f.seedVisit(t)
	bookingID := f.seedBooking(t, &visitID)

	resp, err := f.svc.CaptureOrder(ctx, paymentdomain.CaptureOrderRequest{OrderID: "ORDER-1", BookingID: bookingID.String()})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "CAP-1", resp.CaptureID)
	assert.Equal(t, bookingID.String(), resp.BookingID)

	booking, err := f.visits.FindBooking(ctx, f.env.DB, bookingID)
	require.NoError(t, err)
	assert.Equal(t, sitevisitdomain.BookingStatusPaid, booking.Status)
	require.NotNil(t, booking.PayPalTransactionID)
	assert.Equal(t, "CAP-1", *booking.PayPalTransactionID)
	assert.NotNil(t, booking.PaidAt)

	visit, err := f.visits.FindVisit(ctx, f.env.DB, visitID)
	require.NoError(t, err)
	assert.Equal(t, sitevisitdomain.PaymentStatusPaid, visit.PaymentStatus)
	assert.Equal(t, int64(1), testutil.Count(t, f.env.DB, "audit_logs", "action = ?", "booking.paid"))

	again, err := f.svc.CaptureOrder(ctx, paymentdomain.CaptureOrderRequest{OrderID: "ORDER-1", BookingID: bookingID.String()})
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.Equal(t, "CAP-1", again.CaptureID)
	assert.Len(t, f.gateway.captures, 1)

	_, err = f.svc.CaptureOrder(ctx, paymentdomain.CaptureOrderRequest{OrderID: "ORDER-2", BookingID: bookingID.String()})
	assert.ErrorIs(t, err, paymentdomain.ErrBookingPaid)
}

func TestCaptureOrderNotCompletedLeavesBooking(t *testing.T) {
	f := newFixture(t, &fakeGateway{status: "PENDING"})
	ctx := context.Background()
	bookingID := f.seedBooking(t, nil)

	_, err := f.svc.CaptureOrder(ctx, paymentdomain.CaptureOrderRequest{OrderID: "ORDER-1", BookingID: bookingID.String()})
	require.ErrorIs(t, err, paymentdomain.ErrCaptureIncomplete)
	incomplete, ok := paymentdomain.AsCaptureIncomplete(err)
	require.True(t, ok)
	assert.Equal(t, "PENDING", incomplete.Status)

	booking, err := f.visits.FindBooking(ctx, f.env.DB, bookingID)
	require.NoError(t, err)
	assert.Equal(t, sitevisitdomain.BookingStatusPending, booking.Status)
	assert.Nil(t, booking.PaidAt)
}

func TestCaptureOrderUnknownBooking(t *testing.T) {
	f := newFixture(t, &fakeGateway{})
	_, err := f.svc.CaptureOrder(context.Background(), paymentdomain.CaptureOrderRequest{OrderID: "ORDER-1", BookingID: "77"})
	assert.ErrorIs(t, err, paymentdomain.ErrBookingNotFound)
	assert.Empty(t, f.gateway.captures)
}
