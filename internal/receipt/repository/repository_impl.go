package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/receipt/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const receiptColumns = `id, receipt_number, payment_id, invoice_id, order_id, customer_id, amount,
	invoice_total, previous_balance, remaining_balance, currency, payment_method, issued_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, receipt *domain.Receipt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO receipts (`+receiptColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID,
		receipt.ReceiptNumber,
		receipt.PaymentID,
		receipt.InvoiceID,
		receipt.OrderID,
		receipt.CustomerID,
		receipt.Amount,
		receipt.InvoiceTotal,
		receipt.PreviousBalance,
		receipt.RemainingBalance,
		receipt.Currency,
		receipt.PaymentMethod,
		receipt.IssuedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Receipt, error) {
	return r.findOne(ctx, db, `SELECT `+receiptColumns+` FROM receipts WHERE id = ?`, id)
}

func (r *repo) FindByPaymentID(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*domain.Receipt, error) {
	return r.findOne(ctx, db, `SELECT `+receiptColumns+` FROM receipts WHERE payment_id = ?`, paymentID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Receipt, error) {
	var receipt domain.Receipt
	if err := db.WithContext(ctx).Raw(query, arg).Scan(&receipt).Error; err != nil {
		return nil, err
	}
	if receipt.ID == 0 {
		return nil, nil
	}
	return &receipt, nil
}

func (r *repo) ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]*domain.Receipt, error) {
	var receipts []*domain.Receipt
	err := db.WithContext(ctx).Raw(
		`SELECT `+receiptColumns+` FROM receipts WHERE invoice_id = ? ORDER BY id ASC`,
		invoiceID,
	).Scan(&receipts).Error
	if err != nil {
		return nil, err
	}
	return receipts, nil
}
