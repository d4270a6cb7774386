package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PayPalCredentials is the decrypted view of the active PayPal settings.
type PayPalCredentials struct {
	ClientID     string
	ClientSecret string
	Environment  string
	BaseURL      string
}

// StripeCredentials is the decrypted view of the active Stripe settings.
type StripeCredentials struct {
	PublishableKey string
	SecretKey      string
	WebhookSecret  string
	Mode           string
	BaseURL        string
}

type EmailCredentials struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

type AICredentials struct {
	Provider     string
	Model        string
	APIKey       string
	SystemPrompt string
	Temperature  float64
	// Revision changes whenever the settings row is written.
	Revision time.Time
}

type PayPalView struct {
	Configured   bool      `json:"configured"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Environment  string    `json:"environment"`
	IsActive     bool      `json:"is_active"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type StripeView struct {
	Configured     bool      `json:"configured"`
	PublishableKey string    `json:"publishable_key"`
	SecretKey      string    `json:"secret_key"`
	WebhookSecret  string    `json:"webhook_secret"`
	Mode           string    `json:"mode,omitempty"`
	IsActive       bool      `json:"is_active"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

type EmailView struct {
	Configured bool      `json:"configured"`
	SMTPHost   string    `json:"smtp_host"`
	SMTPPort   int       `json:"smtp_port"`
	Username   string    `json:"username"`
	Password   string    `json:"password"`
	FromEmail  string    `json:"from_email"`
	FromName   string    `json:"from_name"`
	IsActive   bool      `json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

type AIView struct {
	Configured   bool            `json:"configured"`
	Provider     string          `json:"provider"`
	Model        string          `json:"model"`
	APIKey       string          `json:"api_key"`
	SystemPrompt string          `json:"system_prompt"`
	Temperature  decimal.Decimal `json:"temperature"`
	IsActive     bool            `json:"is_active"`
	UpdatedAt    time.Time       `json:"updated_at,omitempty"`
}

// Blank secret fields on an update keep the stored value.

type UpsertPayPalRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Environment  string `json:"environment"`
	IsActive     *bool  `json:"is_active"`
}

type UpsertStripeRequest struct {
	PublishableKey string `json:"publishable_key"`
	SecretKey      string `json:"secret_key"`
	WebhookSecret  string `json:"webhook_secret"`
	IsActive       *bool  `json:"is_active"`
}

type UpsertBankTransferRequest struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	IBAN          string `json:"iban"`
	SwiftCode     string `json:"swift_code"`
	Instructions  string `json:"instructions"`
}

type UpsertEmailRequest struct {
	SMTPHost  string `json:"smtp_host"`
	SMTPPort  int    `json:"smtp_port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
	IsActive  *bool  `json:"is_active"`
}

type UpsertBrandRequest struct {
	CompanyName           string `json:"company_name"`
	Address               string `json:"address"`
	Phone                 string `json:"phone"`
	Email                 string `json:"email"`
	TaxRegistrationNumber string `json:"tax_registration_number"`
	FooterNote            string `json:"footer_note"`
}

type UpsertAIRequest struct {
	Provider     string           `json:"provider"`
	Model        string           `json:"model"`
	APIKey       string           `json:"api_key"`
	SystemPrompt string           `json:"system_prompt"`
	Temperature  *decimal.Decimal `json:"temperature"`
	IsActive     *bool            `json:"is_active"`
}

// Accessor resolves runtime credentials for outbound integrations.
type Accessor interface {
	PayPal(ctx context.Context) (PayPalCredentials, error)
	Stripe(ctx context.Context) (StripeCredentials, error)
	// StripeWebhookSecret returns the stored signing secret, or "" when none
	// is configured. It does not require the gateway to be active.
	StripeWebhookSecret(ctx context.Context) (string, error)
	Email(ctx context.Context) (EmailCredentials, error)
	AI(ctx context.Context) (AICredentials, error)
	Brand(ctx context.Context) (BrandSettings, error)
	BankTransfer(ctx context.Context) (BankTransferSettings, error)
}

type Service interface {
	Accessor

	GetPayPal(ctx context.Context) (PayPalView, error)
	UpsertPayPal(ctx context.Context, req UpsertPayPalRequest) (PayPalView, error)
	SetPayPalActive(ctx context.Context, active bool) (PayPalView, error)

	GetStripe(ctx context.Context) (StripeView, error)
	UpsertStripe(ctx context.Context, req UpsertStripeRequest) (StripeView, error)
	SetStripeActive(ctx context.Context, active bool) (StripeView, error)

	UpsertBankTransfer(ctx context.Context, req UpsertBankTransferRequest) (BankTransferSettings, error)

	GetEmail(ctx context.Context) (EmailView, error)
	UpsertEmail(ctx context.Context, req UpsertEmailRequest) (EmailView, error)

	UpsertBrand(ctx context.Context, req UpsertBrandRequest) (BrandSettings, error)

	GetAI(ctx context.Context) (AIView, error)
	UpsertAI(ctx context.Context, req UpsertAIRequest) (AIView, error)
}

var (
	ErrNotConfigured        = errors.New("gateway_not_configured")
	ErrGatewayDisabled      = errors.New("gateway_disabled")
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrEncryptionKeyMissing = errors.New("encryption_key_missing")
	ErrInvalidEnvironment   = errors.New("invalid_environment")
	ErrInvalidSecretKey     = errors.New("invalid_secret_key")
	ErrInvalidProvider      = errors.New("invalid_provider")
	ErrInvalidTemperature   = errors.New("invalid_temperature")
	ErrInvalidSMTP          = errors.New("invalid_smtp_settings")
	ErrInvalidEmail         = errors.New("invalid_email")
)
