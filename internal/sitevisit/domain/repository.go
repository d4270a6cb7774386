package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	CustomerID snowflake.ID
	Status     string
	After      int64
	Limit      int
}

type Repository interface {
	InsertVisit(ctx context.Context, db *gorm.DB, visit *SiteVisit) error
	FindVisit(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SiteVisit, error)
	ListVisits(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*SiteVisit, error)
	SetVisitOrder(ctx context.Context, db *gorm.DB, id snowflake.ID, orderID string, updatedAt time.Time) (bool, error)
	MarkVisitPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, updatedAt time.Time) error

	InsertBooking(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	// MarkBookingPaid applies the capture result once. It reports false when
	// the booking was already paid.
	MarkBookingPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, orderID, transactionID string, paidAt time.Time) (bool, error)
}
