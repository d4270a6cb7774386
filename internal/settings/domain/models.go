package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	PayPalEnvironmentSandbox = "sandbox"
	PayPalEnvironmentLive    = "live"

	StripeModeTest = "test"
	StripeModeLive = "live"

	AIProviderOpenAI    = "openai"
	AIProviderAnthropic = "anthropic"
	AIProviderGemini    = "gemini"
)

// Secret columns hold the JSON envelope written by the settings cipher,
// never the plain value.

type PayPalSettings struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	ClientID     string
	ClientSecret string
	Environment  string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PayPalSettings) TableName() string { return "paypal_settings" }

type StripeSettings struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	PublishableKey string
	SecretKey      string
	WebhookSecret  string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (StripeSettings) TableName() string { return "stripe_settings" }

type BankTransferSettings struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"-"`
	BankName      string       `json:"bank_name"`
	AccountName   string       `json:"account_name"`
	AccountNumber string       `json:"account_number"`
	IBAN          string       `gorm:"column:iban" json:"iban"`
	SwiftCode     string       `json:"swift_code"`
	Instructions  string       `json:"instructions"`
	CreatedAt     time.Time    `json:"-"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (BankTransferSettings) TableName() string { return "bank_transfer_settings" }

type EmailSettings struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	SMTPHost  string       `gorm:"column:smtp_host"`
	SMTPPort  int          `gorm:"column:smtp_port"`
	Username  string
	Password  string
	FromEmail string
	FromName  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EmailSettings) TableName() string { return "email_settings" }

type BrandSettings struct {
	ID                    snowflake.ID `gorm:"primaryKey" json:"-"`
	CompanyName           string       `json:"company_name"`
	Address               string       `json:"address"`
	Phone                 string       `json:"phone"`
	Email                 string       `json:"email"`
	TaxRegistrationNumber string       `json:"tax_registration_number"`
	FooterNote            string       `json:"footer_note"`
	CreatedAt             time.Time    `json:"-"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

func (BrandSettings) TableName() string { return "brand_settings" }

type AISettings struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Provider     string
	Model        string
	APIKey       string `gorm:"column:api_key"`
	SystemPrompt string
	Temperature  decimal.Decimal
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (AISettings) TableName() string { return "ai_settings" }
