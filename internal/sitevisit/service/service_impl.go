package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	customerdomain "github.com/smallbiznis/glazeops/internal/customer/domain"
	"github.com/smallbiznis/glazeops/internal/sitevisit/domain"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Customers   customerdomain.Service
	PaymentsCfg *config.PaymentsConfigHolder
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	customers   customerdomain.Service
	paymentsCfg *config.PaymentsConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("sitevisit.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		customers:   p.Customers,
		paymentsCfg: p.PaymentsCfg,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateSiteVisitRequest) (domain.SiteVisit, error) {
	customer, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) || errors.Is(err, customerdomain.ErrInvalidID) {
			return domain.SiteVisit{}, domain.ErrInvalidCustomer
		}
		return domain.SiteVisit{}, err
	}
	if req.FeeAmount.IsNegative() {
		return domain.SiteVisit{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	visit := domain.SiteVisit{
		ID:            s.genID.Generate(),
		CustomerID:    customer.ID,
		Address:       strings.TrimSpace(req.Address),
		ScheduledAt:   req.ScheduledAt,
		Status:        domain.VisitStatusScheduled,
		FeeAmount:     req.FeeAmount.Round(2),
		PaymentStatus: domain.PaymentStatusUnpaid,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if visit.Address == "" {
		visit.Address = customer.Address
	}
	if err := s.repo.InsertVisit(ctx, s.db, &visit); err != nil {
		return domain.SiteVisit{}, err
	}
	return visit, nil
}

func (s *Service) Get(ctx context.Context, rawID string) (domain.SiteVisit, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.SiteVisit{}, err
	}
	visit, err := s.repo.FindVisit(ctx, s.db, id)
	if err != nil {
		return domain.SiteVisit{}, err
	}
	if visit == nil {
		return domain.SiteVisit{}, domain.ErrNotFound
	}
	return *visit, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSiteVisitRequest) (domain.ListSiteVisitResponse, error) {
	after, err := req.After()
	if err != nil {
		return domain.ListSiteVisitResponse{}, err
	}
	filter := domain.ListFilter{Status: req.Status, After: after, Limit: req.Limit()}
	if strings.TrimSpace(req.CustomerID) != "" {
		if filter.CustomerID, err = parseID(req.CustomerID); err != nil {
			return domain.ListSiteVisitResponse{}, err
		}
	}

	items, err := s.repo.ListVisits(ctx, s.db, filter)
	if err != nil {
		return domain.ListSiteVisitResponse{}, err
	}
	items, pageInfo := pagination.Page(items, filter.Limit, func(v *domain.SiteVisit) int64 { return v.ID.Int64() })
	visits := make([]domain.SiteVisit, 0, len(items))
	for _, item := range items {
		visits = append(visits, *item)
	}
	return domain.ListSiteVisitResponse{PageInfo: pageInfo, SiteVisits: visits}, nil
}

func (s *Service) CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (domain.CreateBookingResponse, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return domain.CreateBookingResponse{}, domain.ErrInvalidName
	}
	phone := customerdomain.NormalizePhone(req.Phone)
	if phone == "" {
		return domain.CreateBookingResponse{}, domain.ErrInvalidPhone
	}

	customer, err := s.customers.FindOrCreateByPhone(ctx, phone, name)
	if err != nil {
		if errors.Is(err, customerdomain.ErrInvalidPhone) {
			return domain.CreateBookingResponse{}, domain.ErrInvalidPhone
		}
		return domain.CreateBookingResponse{}, err
	}

	fee := s.paymentsCfg.Get().Booking.FeeAmount()
	now := s.clock.Now()
	visit := domain.SiteVisit{
		ID:            s.genID.Generate(),
		CustomerID:    customer.ID,
		Address:       strings.TrimSpace(req.Address),
		ScheduledAt:   req.PreferredDate,
		Status:        domain.VisitStatusScheduled,
		FeeAmount:     fee,
		PaymentStatus: domain.PaymentStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	booking := domain.Booking{
		ID:            s.genID.Generate(),
		SiteVisitID:   &visit.ID,
		CustomerName:  name,
		Phone:         phone,
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Address:       visit.Address,
		PreferredDate: req.PreferredDate,
		Amount:        fee,
		Status:        domain.BookingStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertVisit(ctx, tx, &visit); err != nil {
			return err
		}
		return s.repo.InsertBooking(ctx, tx, &booking)
	})
	if err != nil {
		return domain.CreateBookingResponse{}, err
	}

	return domain.CreateBookingResponse{
		BookingID:   booking.ID.String(),
		SiteVisitID: visit.ID.String(),
		Amount:      fee,
		Currency:    "AED",
	}, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
