package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/sitevisit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertVisit(ctx context.Context, db *gorm.DB, visit *domain.SiteVisit) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO site_visits (
			id, customer_id, address, scheduled_at, status, fee_amount, paypal_order_id,
			payment_status, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		visit.ID,
		visit.CustomerID,
		visit.Address,
		visit.ScheduledAt,
		visit.Status,
		visit.FeeAmount,
		visit.PayPalOrderID,
		visit.PaymentStatus,
		visit.Notes,
		visit.CreatedAt,
		visit.UpdatedAt,
	).Error
}

func (r *repo) FindVisit(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SiteVisit, error) {
	var visit domain.SiteVisit
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, address, scheduled_at, status, fee_amount, paypal_order_id,
			payment_status, notes, created_at, updated_at
		 FROM site_visits WHERE id = ?`,
		id,
	).Scan(&visit).Error
	if err != nil {
		return nil, err
	}
	if visit.ID == 0 {
		return nil, nil
	}
	return &visit, nil
}

func (r *repo) ListVisits(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.SiteVisit, error) {
	var visits []*domain.SiteVisit
	stmt := db.WithContext(ctx).Model(&domain.SiteVisit{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if filter.After > 0 {
		stmt = stmt.Where("id < ?", filter.After)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Order("id desc").Find(&visits).Error; err != nil {
		return nil, err
	}
	return visits, nil
}

func (r *repo) SetVisitOrder(ctx context.Context, db *gorm.DB, id snowflake.ID, orderID string, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE site_visits SET paypal_order_id = ?, updated_at = ? WHERE id = ?`,
		orderID,
		updatedAt,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkVisitPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE site_visits SET payment_status = ?, updated_at = ? WHERE id = ?`,
		domain.PaymentStatusPaid,
		updatedAt,
		id,
	).Error
}

func (r *repo) InsertBooking(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO public_site_visit_bookings (
			id, site_visit_id, customer_name, phone, email, address, preferred_date,
			amount, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.SiteVisitID,
		booking.CustomerName,
		booking.Phone,
		booking.Email,
		booking.Address,
		booking.PreferredDate,
		booking.Amount,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Error
}

func (r *repo) FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	var booking domain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT id, site_visit_id, customer_name, phone, email, address, preferred_date, amount,
			status, paypal_order_id, paypal_transaction_id, paid_at, created_at, updated_at
		 FROM public_site_visit_bookings WHERE id = ?`,
		id,
	).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) MarkBookingPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, orderID, transactionID string, paidAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE public_site_visit_bookings
		 SET status = ?, paypal_order_id = ?, paypal_transaction_id = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND status <> ?`,
		domain.BookingStatusPaid,
		orderID,
		transactionID,
		paidAt,
		paidAt,
		id,
		domain.BookingStatusPaid,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
