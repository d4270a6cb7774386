package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const ledgerReturning = `RETURNING id AS invoice_id, customer_id, order_id, currency,
	total_amount AS invoice_total, balance, status`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, invoice_number, customer_id, order_id, total_amount, balance,
			deposit_paid, payment_before_delivery, currency, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.CustomerID,
		invoice.OrderID,
		invoice.TotalAmount,
		invoice.Balance,
		invoice.DepositPaid,
		invoice.PaymentBeforeDelivery,
		invoice.Currency,
		invoice.Status,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_number, customer_id, order_id, total_amount, balance,
			deposit_paid, payment_before_delivery, currency, status, created_at, updated_at
		 FROM invoices WHERE id = ?`,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
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
	if err := stmt.Order("id desc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ApplyGatewayPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, amount decimal.Decimal, at time.Time) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := db.WithContext(ctx).Raw(
		`UPDATE invoices
		 SET balance = balance - ?,
			status = CASE WHEN balance - ? <= 0 THEN ? ELSE ? END,
			updated_at = ?
		 WHERE id = ?
		 `+ledgerReturning,
		amount,
		amount,
		domain.StatusPaid,
		domain.StatusPartial,
		at,
		id,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.InvoiceID == 0 {
		return nil, nil
	}
	entry.PreviousBalance = entry.Balance.Add(amount)
	return &entry, nil
}

func (r *repo) ApplyManualPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, amount decimal.Decimal, at time.Time) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := db.WithContext(ctx).Raw(
		`UPDATE invoices
		 SET balance = balance - ?,
			payment_before_delivery = payment_before_delivery + ?,
			status = CASE WHEN deposit_paid + payment_before_delivery + ? >= total_amount THEN ? ELSE ? END,
			updated_at = ?
		 WHERE id = ?
		 `+ledgerReturning,
		amount,
		amount,
		amount,
		domain.StatusPaid,
		domain.StatusPartial,
		at,
		id,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.InvoiceID == 0 {
		return nil, nil
	}
	entry.PreviousBalance = entry.Balance.Add(amount)
	return &entry, nil
}
