// Package ledgertest wires the real invoice, customer and receipt services
// over a test database for packages that apply payments.
package ledgertest

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/glazeops/internal/audit/domain"
	auditrepo "github.com/smallbiznis/glazeops/internal/audit/repository"
	auditservice "github.com/smallbiznis/glazeops/internal/audit/service"
	"github.com/smallbiznis/glazeops/internal/clock"
	customerdomain "github.com/smallbiznis/glazeops/internal/customer/domain"
	customerrepo "github.com/smallbiznis/glazeops/internal/customer/repository"
	customerservice "github.com/smallbiznis/glazeops/internal/customer/service"
	invoicedomain "github.com/smallbiznis/glazeops/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/glazeops/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/glazeops/internal/invoice/service"
	"github.com/smallbiznis/glazeops/internal/providers/pdf"
	receiptdomain "github.com/smallbiznis/glazeops/internal/receipt/domain"
	receiptrepo "github.com/smallbiznis/glazeops/internal/receipt/repository"
	receiptservice "github.com/smallbiznis/glazeops/internal/receipt/service"
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"gorm.io/gorm"
)

// Settings answers the accessor calls made while issuing receipts and
// ingesting webhooks. Unset methods panic through the nil embedded interface.
type Settings struct {
	settingsdomain.Accessor

	WebhookSecret string
	PayPalCreds   settingsdomain.PayPalCredentials
	PayPalErr     error
}

func (s *Settings) Brand(context.Context) (settingsdomain.BrandSettings, error) {
	return settingsdomain.BrandSettings{CompanyName: "Gulf Glass"}, nil
}

func (s *Settings) StripeWebhookSecret(context.Context) (string, error) {
	return s.WebhookSecret, nil
}

func (s *Settings) PayPal(context.Context) (settingsdomain.PayPalCredentials, error) {
	return s.PayPalCreds, s.PayPalErr
}

type Mail struct {
	To       []string
	Template string
	Data     map[string]any
}

// Mailer records templated mail instead of sending it.
type Mailer struct {
	mu   sync.Mutex
	sent []Mail
}

func (m *Mailer) Send(context.Context, []string, string, string) error { return nil }

func (m *Mailer) SendTemplate(_ context.Context, to []string, name string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Mail{To: to, Template: name, Data: data})
	return nil
}

func (m *Mailer) Sent() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.sent...)
}

type Env struct {
	DB        *gorm.DB
	Node      *snowflake.Node
	Clock     *clock.FakeClock
	Settings  *Settings
	Mailer    *Mailer
	Customers customerdomain.Service
	Invoices  invoicedomain.Service
	InvoiceDB invoicedomain.Repository
	Receipts  receiptdomain.Service
	Audit     auditdomain.Service
}

func New(t *testing.T, fixed *clock.FakeClock) *Env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	node := testutil.NewNode(t)
	log := testutil.Logger()

	env := &Env{
		DB:        db,
		Node:      node,
		Clock:     fixed,
		Settings:  &Settings{},
		Mailer:    &Mailer{},
		InvoiceDB: invoicerepo.Provide(),
	}
	env.Customers = customerservice.New(customerservice.Params{
		DB: db, Log: log, GenID: node, Clock: fixed, Repo: customerrepo.Provide(),
	})
	env.Invoices = invoiceservice.New(invoiceservice.Params{
		DB: db, Log: log, GenID: node, Clock: fixed, Repo: env.InvoiceDB, Customers: env.Customers,
	})
	env.Receipts = receiptservice.New(receiptservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fixed,
		Repo:      receiptrepo.Provide(),
		Invoices:  env.Invoices,
		Customers: env.Customers,
		Settings:  env.Settings,
		PDF:       pdf.New(),
		Email:     env.Mailer,
	})
	env.Audit = auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: fixed, Repo: auditrepo.Provide(),
	})
	return env
}
