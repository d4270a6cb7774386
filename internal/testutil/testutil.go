package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/internal/migration"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	dbSeq   atomic.Int64
	nodeSeq atomic.Int64
)

// SetupTestDB opens an isolated in-memory SQLite database with the full
// application schema applied.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:glazeops_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// One connection keeps the shared-cache database alive and serialises
	// writers the way row locks would.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	stmts, err := migration.UpStatements(migration.SQLiteRewrite)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	for _, stmt := range stmts {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v\n%s", err, stmt)
		}
	}
	return conn
}

// NewNode returns a snowflake node with a node number unique to this test
// binary, so several nodes never mint the same id.
func NewNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(nodeSeq.Add(1) % 1024)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func Logger() *zap.Logger {
	return zap.NewNop()
}

// Dec parses a decimal literal or fails the test.
func Dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("decimal %q: %v", v, err)
	}
	return d
}

// SeedCustomer inserts a customer row and returns its id.
func SeedCustomer(t *testing.T, db *gorm.DB, node *snowflake.Node, name string) snowflake.ID {
	t.Helper()
	id := node.Generate()
	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO customers (id, name, email, phone, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, "customer@example.com", "+971500000001", now, now,
	).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return id
}

// InvoiceSeed describes the ledger state of a seeded invoice.
type InvoiceSeed struct {
	CustomerID            snowflake.ID
	Number                string
	OrderID               string
	Total                 string
	Balance               string
	DepositPaid           string
	PaymentBeforeDelivery string
	Status                string
}

func SeedInvoice(t *testing.T, db *gorm.DB, node *snowflake.Node, seed InvoiceSeed) snowflake.ID {
	t.Helper()
	id := node.Generate()
	now := time.Now().UTC()
	if seed.Number == "" {
		seed.Number = fmt.Sprintf("INV-%d", id)
	}
	if seed.DepositPaid == "" {
		seed.DepositPaid = "0"
	}
	if seed.PaymentBeforeDelivery == "" {
		seed.PaymentBeforeDelivery = "0"
	}
	if seed.Status == "" {
		seed.Status = "Unpaid"
	}
	if err := db.Exec(
		`INSERT INTO invoices (id, invoice_number, customer_id, order_id, total_amount, balance,
			deposit_paid, payment_before_delivery, currency, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'AED', ?, ?, ?)`,
		id, seed.Number, seed.CustomerID, seed.OrderID,
		Dec(t, seed.Total), Dec(t, seed.Balance), Dec(t, seed.DepositPaid), Dec(t, seed.PaymentBeforeDelivery),
		seed.Status, now, now,
	).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return id
}

// Count returns the row count of a table filtered by an optional where clause.
func Count(t *testing.T, db *gorm.DB, table string, where string, args ...any) int64 {
	t.Helper()
	query := "SELECT COUNT(1) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int64
	if err := db.Raw(query, args...).Scan(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
