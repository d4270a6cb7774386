package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/glazeops/internal/settings/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

var toggleTables = map[string]struct{}{
	"paypal_settings": {},
	"stripe_settings": {},
	"email_settings":  {},
	"ai_settings":     {},
}

func (r *repo) FindPayPal(ctx context.Context, db *gorm.DB) (*domain.PayPalSettings, error) {
	var row domain.PayPalSettings
	err := db.WithContext(ctx).Raw(
		`SELECT id, client_id, client_secret, environment, is_active, created_at, updated_at
		 FROM paypal_settings
		 LIMIT 1`,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) UpsertPayPal(ctx context.Context, db *gorm.DB, row *domain.PayPalSettings) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO paypal_settings (
			id, singleton, client_id, client_secret, environment, is_active, created_at, updated_at
		) VALUES (?, TRUE, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (singleton)
		DO UPDATE SET client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			environment = EXCLUDED.environment,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		row.ID,
		row.ClientID,
		row.ClientSecret,
		row.Environment,
		row.IsActive,
		row.CreatedAt,
		row.UpdatedAt,
	).Error
}

func (r *repo) FindStripe(ctx context.Context, db *gorm.DB) (*domain.StripeSettings, error) {
	var row domain.StripeSettings
	err := db.WithContext(ctx).Raw(
		`SELECT id, publishable_key, secret_key, webhook_secret, is_active, created_at, updated_at
		 FROM stripe_settings
		 LIMIT 1`,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) UpsertStripe(ctx context.Context, db *gorm.DB, row *domain.StripeSettings) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stripe_settings (
			id, singleton, publishable_key, secret_key, webhook_secret, is_active, created_at, updated_at
		) VALUES (?, TRUE, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (singleton)
		DO UPDATE SET publishable_key = EXCLUDED.publishable_key,
			secret_key = EXCLUDED.secret_key,
			webhook_secret = EXCLUDED.webhook_secret,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		row.ID,
		row.PublishableKey,
		row.SecretKey,
		row.WebhookSecret,
		row.IsActive,
		row.CreatedAt,
		row.UpdatedAt,
	).Error
}

func (r *repo) FindBankTransfer(ctx context.Context, db *gorm.DB) (*domain.BankTransferSettings, error) {
	var row domain.BankTransferSettings
	err := db.WithContext(ctx).Raw(
		`SELECT id, bank_name, account_name, account_number, iban, swift_code, instructions, created_at, updated_at
		 FROM bank_transfer_settings
		 LIMIT 1`,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) UpsertBankTransfer(ctx context.Context, db *gorm.DB, row *domain.BankTransferSettings) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bank_transfer_settings (
			id, singleton, bank_name, account_name, account_number, iban, swift_code, instructions, created_at, updated_at
		) VALUES (?, TRUE, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (singleton)
		DO UPDATE SET bank_name = EXCLUDED.bank_name,
			account_name = EXCLUDED.account_name,
			account_number = EXCLUDED.account_number,
			iban = EXCLUDED.iban,
			swift_code = EXCLUDED.swift_code,
			instructions = EXCLUDED.instructions,
			updated_at = EXCLUDED.updated_at`,
		row.ID,
		row.BankName,
		row.AccountName,
		row.AccountNumber,
		row.IBAN,
		row.SwiftCode,
		row.Instructions,
		row.CreatedAt,
		row.UpdatedAt,
	).Error
}

func (r *repo) FindEmail(ctx context.Context, db *gorm.DB) (*domain.EmailSettings, error) {
	var row domain.EmailSettings
	err := db.WithContext(ctx).Raw(
		`SELECT id, smtp_host, smtp_port, username, password, from_email, from_name, is_active, created_at, updated_at
		 FROM email_settings
		 LIMIT 1`,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) UpsertEmail(ctx context.Context, db *gorm.DB, row *domain.EmailSettings) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO email_settings (
			id, singleton, smtp_host, smtp_port, username, password, from_email, from_name, is_active, created_at, updated_at
		) VALUES (?, TRUE, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (singleton)
		DO UPDATE SET smtp_host = EXCLUDED.smtp_host,
			smtp_port = EXCLUDED.smtp_port,
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			from_email = EXCLUDED.from_email,
			from_name = EXCLUDED.from_name,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		row.ID,
		row.SMTPHost,
		row.SMTPPort,
		row.Username,
		row.Password,
		row.FromEmail,
		row.FromName,
		row.IsActive,
		row.CreatedAt,
		row.UpdatedAt,
	).Error
}

func (r *repo) FindBrand(ctx context.Context, db *gorm.DB) (*domain.BrandSettings, error) {
	var row domain.BrandSettings
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_name, address, phone, email, tax_registration_number, footer_note, created_at, updated_at
		 FROM brand_settings
		 LIMIT 1`,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) UpsertBrand(ctx context.Context, db *gorm.DB, row *domain.BrandSettings) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO brand_settings (
			id, singleton, company_name, address, phone, email, tax_registration_number, footer_note, created_at, updated_at
		) VALUES (?, TRUE, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (singleton)
		DO UPDATE SET company_name = EXCLUDED.company_name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			tax_registration_number = EXCLUDED.tax_registration_number,
			footer_note = EXCLUDED.footer_note,
			updated_at = EXCLUDED.updated_at`,
		row.ID,
		row.CompanyName,
		row.Address,
		row.Phone,
		row.Email,
		row.TaxRegistrationNumber,
		row.FooterNote,
		row.CreatedAt,
		row.UpdatedAt,
	).Error
}

func (r *repo) FindAI(ctx context.Context, db *gorm.DB) (*domain.AISettings, error) {
	var row domain.AISettings
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, model, api_key, system_prompt, temperature, is_active, created_at, updated_at
		 FROM ai_settings
		 LIMIT 1`,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) UpsertAI(ctx context.Context, db *gorm.DB, row *domain.AISettings) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ai_settings (
			id, singleton, provider, model, api_key, system_prompt, temperature, is_active, created_at, updated_at
		) VALUES (?, TRUE, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (singleton)
		DO UPDATE SET provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			api_key = EXCLUDED.api_key,
			system_prompt = EXCLUDED.system_prompt,
			temperature = EXCLUDED.temperature,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		row.ID,
		row.Provider,
		row.Model,
		row.APIKey,
		row.SystemPrompt,
		row.Temperature,
		row.IsActive,
		row.CreatedAt,
		row.UpdatedAt,
	).Error
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, table string, active bool, updatedAt time.Time) (bool, error) {
	if _, ok := toggleTables[table]; !ok {
		return false, fmt.Errorf("settings table %q has no active flag", table)
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE `+table+` SET is_active = ?, updated_at = ?`,
		active,
		updatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
