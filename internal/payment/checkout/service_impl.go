package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/glazeops/internal/audit/domain"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/currency"
	"github.com/smallbiznis/glazeops/internal/observability/metrics"
	"github.com/smallbiznis/glazeops/internal/payment/adapters/paypal"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	sitevisitdomain "github.com/smallbiznis/glazeops/internal/sitevisit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gateway is the part of the PayPal client used by checkout.
type Gateway interface {
	CreateOrder(ctx context.Context, req paypal.OrderRequest) (paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (paypal.Capture, error)
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Visits   sitevisitdomain.Repository
	Gateway  Gateway
	Rates    currency.RateProvider
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	visits   sitevisitdomain.Repository
	gateway  Gateway
	rates    currency.RateProvider
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) paymentdomain.CheckoutService {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.checkout"),
		clock:    p.Clock,
		visits:   p.Visits,
		gateway:  p.Gateway,
		rates:    p.Rates,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

// ProvideGateway exposes the PayPal client as the checkout gateway.
func ProvideGateway(client *paypal.Client) Gateway {
	return client
}

func (s *Service) CreateOrder(ctx context.Context, req paymentdomain.CreateOrderRequest) (paymentdomain.CreateOrderResponse, error) {
	visitID, err := parseID(req.SiteVisitID)
	if err != nil {
		return paymentdomain.CreateOrderResponse{}, err
	}
	if !req.Amount.IsPositive() {
		return paymentdomain.CreateOrderResponse{}, paymentdomain.ErrInvalidAmount
	}

	visit, err := s.visits.FindVisit(ctx, s.db, visitID)
	if err != nil {
		return paymentdomain.CreateOrderResponse{}, err
	}
	if visit == nil {
		return paymentdomain.CreateOrderResponse{}, paymentdomain.ErrSiteVisitNotFound
	}

	amountAED := req.Amount.Round(2)
	amountUSD, err := currency.Convert(ctx, s.rates, amountAED, currency.AED, currency.USD)
	if err != nil {
		return paymentdomain.CreateOrderResponse{}, err
	}
	// PayPal refuses zero-value orders.
	if !amountUSD.IsPositive() {
		return paymentdomain.CreateOrderResponse{}, currency.ErrAmountTooSmall
	}

	order, err := s.gateway.CreateOrder(ctx, paypal.OrderRequest{
		ReferenceID: visit.ID.String(),
		CustomID:    visit.ID.String(),
		Description: fmt.Sprintf("Site visit booking fee (AED %s)", amountAED.StringFixed(2)),
		Currency:    currency.USD,
		Amount:      amountUSD,
	})
	if err != nil {
		s.log.Error("paypal create order failed", zap.String("site_visit_id", visit.ID.String()), zap.Error(err))
		return paymentdomain.CreateOrderResponse{}, err
	}

	if _, err := s.visits.SetVisitOrder(ctx, s.db, visit.ID, order.ID, s.clock.Now()); err != nil {
		return paymentdomain.CreateOrderResponse{}, err
	}

	s.log.Info("paypal order created",
		zap.String("order_id", order.ID),
		zap.String("site_visit_id", visit.ID.String()),
		zap.String("amount_aed", amountAED.StringFixed(2)),
		zap.String("amount_usd", amountUSD.StringFixed(2)),
	)
	return paymentdomain.CreateOrderResponse{
		OrderID: order.ID,
		Status:  order.Status,
		Links:   order.Links,
	}, nil
}

func (s *Service) CaptureOrder(ctx context.Context, req paymentdomain.CaptureOrderRequest) (paymentdomain.CaptureOrderResponse, error) {
	bookingID, err := parseID(req.BookingID)
	if err != nil {
		return paymentdomain.CaptureOrderResponse{}, err
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return paymentdomain.CaptureOrderResponse{}, paymentdomain.ErrInvalidID
	}

	booking, err := s.visits.FindBooking(ctx, s.db, bookingID)
	if err != nil {
		return paymentdomain.CaptureOrderResponse{}, err
	}
	if booking == nil {
		return paymentdomain.CaptureOrderResponse{}, paymentdomain.ErrBookingNotFound
	}
	if booking.Status == sitevisitdomain.BookingStatusPaid {
		return s.alreadyPaid(booking, orderID)
	}

	capture, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		s.log.Error("paypal capture failed", zap.String("order_id", orderID), zap.Error(err))
		return paymentdomain.CaptureOrderResponse{}, err
	}
	if capture.Status != paypal.StatusCompleted {
		s.log.Warn("paypal capture not completed",
			zap.String("order_id", orderID),
			zap.String("status", capture.Status),
		)
		s.metrics.RecordLedgerApplied(ctx, paymentdomain.GatewayPayPal, "incomplete")
		return paymentdomain.CaptureOrderResponse{}, &paymentdomain.CaptureIncompleteError{Status: capture.Status}
	}

	now := s.clock.Now()
	var updated bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err = s.visits.MarkBookingPaid(ctx, tx, booking.ID, orderID, capture.CaptureID, now)
		if err != nil || !updated {
			return err
		}
		if booking.SiteVisitID != nil {
			if err := s.visits.MarkVisitPaid(ctx, tx, *booking.SiteVisitID, now); err != nil {
				return err
			}
		}
		if s.auditSvc != nil {
			return s.auditSvc.AuditLog(ctx, tx, "booking.paid", "site_visit_booking", booking.ID.String(), map[string]any{
				"order_id":   orderID,
				"capture_id": capture.CaptureID,
				"amount":     booking.Amount.StringFixed(2),
			})
		}
		return nil
	})
	if err != nil {
		return paymentdomain.CaptureOrderResponse{}, err
	}
	if !updated {
		// A concurrent capture settled the booking first.
		current, err := s.visits.FindBooking(ctx, s.db, booking.ID)
		if err != nil {
			return paymentdomain.CaptureOrderResponse{}, err
		}
		if current == nil {
			return paymentdomain.CaptureOrderResponse{}, paymentdomain.ErrBookingNotFound
		}
		return s.alreadyPaid(current, orderID)
	}

	s.metrics.RecordLedgerApplied(ctx, paymentdomain.GatewayPayPal, "applied")
	s.log.Info("booking paid",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", orderID),
		zap.String("capture_id", capture.CaptureID),
	)
	return paymentdomain.CaptureOrderResponse{
		Success:   true,
		CaptureID: capture.CaptureID,
		OrderID:   orderID,
		Status:    capture.Status,
		BookingID: booking.ID.String(),
	}, nil
}

func (s *Service) alreadyPaid(booking *sitevisitdomain.Booking, orderID string) (paymentdomain.CaptureOrderResponse, error) {
	if booking.PayPalOrderID == nil || *booking.PayPalOrderID != orderID {
		return paymentdomain.CaptureOrderResponse{}, paymentdomain.ErrBookingPaid
	}
	resp := paymentdomain.CaptureOrderResponse{
		Success:   true,
		OrderID:   orderID,
		Status:    paypal.StatusCompleted,
		BookingID: booking.ID.String(),
	}
	if booking.PayPalTransactionID != nil {
		resp.CaptureID = *booking.PayPalTransactionID
	}
	return resp, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, paymentdomain.ErrInvalidID
	}
	return id, nil
}
