package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/glazeops/internal/audit/domain"
	"github.com/smallbiznis/glazeops/internal/audit/masking"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	payPalSandboxURL = "https://api-m.sandbox.paypal.com"
	payPalLiveURL    = "https://api-m.paypal.com"
	stripeAPIURL     = "https://api.stripe.com"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Cfg      config.Config
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	box      secretBox
	gateways config.GatewayConfig
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("settings.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		box:      newSecretBox(p.Cfg.SecretsKey),
		gateways: p.Cfg.Gateways,
		auditSvc: p.AuditSvc,
	}
}

// NewAccessor exposes the runtime credential lookups of the settings service.
func NewAccessor(svc domain.Service) domain.Accessor {
	return svc
}

func (s *Service) PayPal(ctx context.Context) (domain.PayPalCredentials, error) {
	row, err := s.repo.FindPayPal(ctx, s.db)
	if err != nil {
		return domain.PayPalCredentials{}, err
	}
	if row == nil {
		return domain.PayPalCredentials{}, domain.ErrNotConfigured
	}
	if !row.IsActive {
		return domain.PayPalCredentials{}, domain.ErrGatewayDisabled
	}

	secret, err := s.box.open(row.ClientSecret)
	if err != nil {
		s.log.Error("failed to decrypt paypal client secret", zap.Error(err))
		return domain.PayPalCredentials{}, domain.ErrInvalidCredentials
	}
	creds := domain.PayPalCredentials{
		ClientID:     strings.TrimSpace(row.ClientID),
		ClientSecret: secret,
		Environment:  row.Environment,
		BaseURL:      payPalBaseURL(row.Environment),
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return domain.PayPalCredentials{}, domain.ErrInvalidCredentials
	}
	if s.gateways.PayPalBaseURL != "" {
		creds.BaseURL = strings.TrimRight(s.gateways.PayPalBaseURL, "/")
	}
	return creds, nil
}

func (s *Service) Stripe(ctx context.Context) (domain.StripeCredentials, error) {
	row, err := s.repo.FindStripe(ctx, s.db)
	if err != nil {
		return domain.StripeCredentials{}, err
	}
	if row == nil {
		return domain.StripeCredentials{}, domain.ErrNotConfigured
	}
	if !row.IsActive {
		return domain.StripeCredentials{}, domain.ErrGatewayDisabled
	}

	secretKey, err := s.box.open(row.SecretKey)
	if err != nil {
		s.log.Error("failed to decrypt stripe secret key", zap.Error(err))
		return domain.StripeCredentials{}, domain.ErrInvalidCredentials
	}
	webhookSecret, err := s.box.open(row.WebhookSecret)
	if err != nil {
		s.log.Error("failed to decrypt stripe webhook secret", zap.Error(err))
		return domain.StripeCredentials{}, domain.ErrInvalidCredentials
	}
	if secretKey == "" {
		return domain.StripeCredentials{}, domain.ErrInvalidCredentials
	}

	creds := domain.StripeCredentials{
		PublishableKey: row.PublishableKey,
		SecretKey:      secretKey,
		WebhookSecret:  webhookSecret,
		Mode:           stripeMode(secretKey),
		BaseURL:        stripeAPIURL,
	}
	if s.gateways.StripeBaseURL != "" {
		creds.BaseURL = strings.TrimRight(s.gateways.StripeBaseURL, "/")
	}
	return creds, nil
}

func (s *Service) StripeWebhookSecret(ctx context.Context) (string, error) {
	row, err := s.repo.FindStripe(ctx, s.db)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", nil
	}
	secret, err := s.box.open(row.WebhookSecret)
	if err != nil {
		s.log.Error("failed to decrypt stripe webhook secret", zap.Error(err))
		return "", domain.ErrInvalidCredentials
	}
	return secret, nil
}

func (s *Service) Email(ctx context.Context) (domain.EmailCredentials, error) {
	row, err := s.repo.FindEmail(ctx, s.db)
	if err != nil {
		return domain.EmailCredentials{}, err
	}
	if row == nil {
		return domain.EmailCredentials{}, domain.ErrNotConfigured
	}
	if !row.IsActive {
		return domain.EmailCredentials{}, domain.ErrGatewayDisabled
	}
	password, err := s.box.open(row.Password)
	if err != nil {
		s.log.Error("failed to decrypt smtp password", zap.Error(err))
		return domain.EmailCredentials{}, domain.ErrInvalidCredentials
	}
	if row.SMTPHost == "" || row.FromEmail == "" {
		return domain.EmailCredentials{}, domain.ErrInvalidCredentials
	}
	return domain.EmailCredentials{
		Host:      row.SMTPHost,
		Port:      row.SMTPPort,
		Username:  row.Username,
		Password:  password,
		FromEmail: row.FromEmail,
		FromName:  row.FromName,
	}, nil
}

func (s *Service) AI(ctx context.Context) (domain.AICredentials, error) {
	row, err := s.repo.FindAI(ctx, s.db)
	if err != nil {
		return domain.AICredentials{}, err
	}
	if row == nil {
		return domain.AICredentials{}, domain.ErrNotConfigured
	}
	if !row.IsActive {
		return domain.AICredentials{}, domain.ErrGatewayDisabled
	}
	apiKey, err := s.box.open(row.APIKey)
	if err != nil {
		s.log.Error("failed to decrypt ai api key", zap.Error(err))
		return domain.AICredentials{}, domain.ErrInvalidCredentials
	}
	if apiKey == "" {
		return domain.AICredentials{}, domain.ErrInvalidCredentials
	}
	temperature, _ := row.Temperature.Float64()
	return domain.AICredentials{
		Provider:     row.Provider,
		Model:        row.Model,
		APIKey:       apiKey,
		SystemPrompt: row.SystemPrompt,
		Temperature:  temperature,
		Revision:     row.UpdatedAt,
	}, nil
}

func (s *Service) Brand(ctx context.Context) (domain.BrandSettings, error) {
	row, err := s.repo.FindBrand(ctx, s.db)
	if err != nil {
		return domain.BrandSettings{}, err
	}
	if row == nil {
		return domain.BrandSettings{}, nil
	}
	return *row, nil
}

func (s *Service) BankTransfer(ctx context.Context) (domain.BankTransferSettings, error) {
	row, err := s.repo.FindBankTransfer(ctx, s.db)
	if err != nil {
		return domain.BankTransferSettings{}, err
	}
	if row == nil {
		return domain.BankTransferSettings{}, nil
	}
	return *row, nil
}

func (s *Service) GetPayPal(ctx context.Context) (domain.PayPalView, error) {
	row, err := s.repo.FindPayPal(ctx, s.db)
	if err != nil {
		return domain.PayPalView{}, err
	}
	return s.payPalView(row), nil
}

func (s *Service) UpsertPayPal(ctx context.Context, req domain.UpsertPayPalRequest) (domain.PayPalView, error) {
	env := strings.ToLower(strings.TrimSpace(req.Environment))
	if env == "" {
		env = domain.PayPalEnvironmentSandbox
	}
	if env != domain.PayPalEnvironmentSandbox && env != domain.PayPalEnvironmentLive {
		return domain.PayPalView{}, domain.ErrInvalidEnvironment
	}

	var view domain.PayPalView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindPayPal(ctx, tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		row := domain.PayPalSettings{
			ID:          s.genID.Generate(),
			ClientID:    strings.TrimSpace(req.ClientID),
			Environment: env,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if existing != nil {
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			row.ClientSecret = existing.ClientSecret
			row.IsActive = existing.IsActive
			if row.ClientID == "" {
				row.ClientID = existing.ClientID
			}
		}
		if secret := strings.TrimSpace(req.ClientSecret); secret != "" {
			sealed, err := s.box.seal(secret)
			if err != nil {
				return err
			}
			row.ClientSecret = sealed
		}
		if req.IsActive != nil {
			row.IsActive = *req.IsActive
		}
		if row.IsActive && (row.ClientID == "" || row.ClientSecret == "") {
			return domain.ErrInvalidCredentials
		}

		if err := s.repo.UpsertPayPal(ctx, tx, &row); err != nil {
			return err
		}
		s.audit(ctx, tx, "settings.paypal.update", "paypal", masking.MaskFields(map[string]any{
			"client_id":      row.ClientID,
			"environment":    row.Environment,
			"is_active":      row.IsActive,
			"secret_rotated": req.ClientSecret != "",
		}, "client_id"))
		view = s.payPalView(&row)
		return nil
	})
	if err != nil {
		return domain.PayPalView{}, err
	}
	return view, nil
}

func (s *Service) SetPayPalActive(ctx context.Context, active bool) (domain.PayPalView, error) {
	if active {
		if err := s.requirePayPalCredentials(ctx); err != nil {
			return domain.PayPalView{}, err
		}
	}
	if err := s.setActive(ctx, "paypal_settings", "paypal", active); err != nil {
		return domain.PayPalView{}, err
	}
	return s.GetPayPal(ctx)
}

func (s *Service) requirePayPalCredentials(ctx context.Context) error {
	row, err := s.repo.FindPayPal(ctx, s.db)
	if err != nil {
		return err
	}
	if row == nil {
		return domain.ErrNotConfigured
	}
	if strings.TrimSpace(row.ClientID) == "" || strings.TrimSpace(row.ClientSecret) == "" {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (s *Service) GetStripe(ctx context.Context) (domain.StripeView, error) {
	row, err := s.repo.FindStripe(ctx, s.db)
	if err != nil {
		return domain.StripeView{}, err
	}
	return s.stripeView(row), nil
}

func (s *Service) UpsertStripe(ctx context.Context, req domain.UpsertStripeRequest) (domain.StripeView, error) {
	secretKey := strings.TrimSpace(req.SecretKey)
	if secretKey != "" && stripeMode(secretKey) == "" {
		return domain.StripeView{}, domain.ErrInvalidSecretKey
	}
	webhookSecret := strings.TrimSpace(req.WebhookSecret)
	if webhookSecret != "" && !strings.HasPrefix(webhookSecret, "whsec_") {
		return domain.StripeView{}, domain.ErrInvalidSecretKey
	}

	var view domain.StripeView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindStripe(ctx, tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		row := domain.StripeSettings{
			ID:             s.genID.Generate(),
			PublishableKey: strings.TrimSpace(req.PublishableKey),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if existing != nil {
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			row.SecretKey = existing.SecretKey
			row.WebhookSecret = existing.WebhookSecret
			row.IsActive = existing.IsActive
			if row.PublishableKey == "" {
				row.PublishableKey = existing.PublishableKey
			}
		}
		if secretKey != "" {
			if row.SecretKey, err = s.box.seal(secretKey); err != nil {
				return err
			}
		}
		if webhookSecret != "" {
			if row.WebhookSecret, err = s.box.seal(webhookSecret); err != nil {
				return err
			}
		}
		if req.IsActive != nil {
			row.IsActive = *req.IsActive
		}
		if row.IsActive && row.SecretKey == "" {
			return domain.ErrInvalidCredentials
		}

		if err := s.repo.UpsertStripe(ctx, tx, &row); err != nil {
			return err
		}
		s.audit(ctx, tx, "settings.stripe.update", "stripe", map[string]any{
			"publishable_key":        row.PublishableKey,
			"is_active":              row.IsActive,
			"secret_key_rotated":     secretKey != "",
			"webhook_secret_rotated": webhookSecret != "",
		})
		view = s.stripeView(&row)
		return nil
	})
	if err != nil {
		return domain.StripeView{}, err
	}
	return view, nil
}

func (s *Service) SetStripeActive(ctx context.Context, active bool) (domain.StripeView, error) {
	if active {
		row, err := s.repo.FindStripe(ctx, s.db)
		if err != nil {
			return domain.StripeView{}, err
		}
		if row == nil {
			return domain.StripeView{}, domain.ErrNotConfigured
		}
		if strings.TrimSpace(row.SecretKey) == "" {
			return domain.StripeView{}, domain.ErrInvalidCredentials
		}
	}
	if err := s.setActive(ctx, "stripe_settings", "stripe", active); err != nil {
		return domain.StripeView{}, err
	}
	return s.GetStripe(ctx)
}

func (s *Service) UpsertBankTransfer(ctx context.Context, req domain.UpsertBankTransferRequest) (domain.BankTransferSettings, error) {
	var out domain.BankTransferSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindBankTransfer(ctx, tx)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		row := domain.BankTransferSettings{
			ID:            s.genID.Generate(),
			BankName:      strings.TrimSpace(req.BankName),
			AccountName:   strings.TrimSpace(req.AccountName),
			AccountNumber: strings.TrimSpace(req.AccountNumber),
			IBAN:          strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(req.IBAN), " ", "")),
			SwiftCode:     strings.ToUpper(strings.TrimSpace(req.SwiftCode)),
			Instructions:  strings.TrimSpace(req.Instructions),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if existing != nil {
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
		}
		if err := s.repo.UpsertBankTransfer(ctx, tx, &row); err != nil {
			return err
		}
		s.audit(ctx, tx, "settings.bank_transfer.update", "bank_transfer", nil)
		out = row
		return nil
	})
	return out, err
}

func (s *Service) GetEmail(ctx context.Context) (domain.EmailView, error) {
	row, err := s.repo.FindEmail(ctx, s.db)
	if err != nil {
		return domain.EmailView{}, err
	}
	return emailView(row), nil
}

func (s *Service) UpsertEmail(ctx context.Context, req domain.UpsertEmailRequest) (domain.EmailView, error) {
	host := strings.TrimSpace(req.SMTPHost)
	port := req.SMTPPort
	if port == 0 {
		port = 587
	}
	if host == "" || port < 1 || port > 65535 {
		return domain.EmailView{}, domain.ErrInvalidSMTP
	}
	fromEmail := strings.TrimSpace(req.FromEmail)
	if !strings.Contains(fromEmail, "@") {
		return domain.EmailView{}, domain.ErrInvalidEmail
	}

	var view domain.EmailView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindEmail(ctx, tx)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		row := domain.EmailSettings{
			ID:        s.genID.Generate(),
			SMTPHost:  host,
			SMTPPort:  port,
			Username:  strings.TrimSpace(req.Username),
			FromEmail: fromEmail,
			FromName:  strings.TrimSpace(req.FromName),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if existing != nil {
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			row.Password = existing.Password
			row.IsActive = existing.IsActive
		}
		if req.Password != "" {
			if row.Password, err = s.box.seal(req.Password); err != nil {
				return err
			}
		}
		if req.IsActive != nil {
			row.IsActive = *req.IsActive
		}
		if err := s.repo.UpsertEmail(ctx, tx, &row); err != nil {
			return err
		}
		s.audit(ctx, tx, "settings.email.update", "email", map[string]any{
			"smtp_host": row.SMTPHost,
			"is_active": row.IsActive,
		})
		view = emailView(&row)
		return nil
	})
	if err != nil {
		return domain.EmailView{}, err
	}
	return view, nil
}

func (s *Service) UpsertBrand(ctx context.Context, req domain.UpsertBrandRequest) (domain.BrandSettings, error) {
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.BrandSettings{}, domain.ErrInvalidEmail
	}

	var out domain.BrandSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindBrand(ctx, tx)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		row := domain.BrandSettings{
			ID:                    s.genID.Generate(),
			CompanyName:           strings.TrimSpace(req.CompanyName),
			Address:               strings.TrimSpace(req.Address),
			Phone:                 strings.TrimSpace(req.Phone),
			Email:                 email,
			TaxRegistrationNumber: strings.TrimSpace(req.TaxRegistrationNumber),
			FooterNote:            strings.TrimSpace(req.FooterNote),
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if existing != nil {
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
		}
		if err := s.repo.UpsertBrand(ctx, tx, &row); err != nil {
			return err
		}
		s.audit(ctx, tx, "settings.brand.update", "brand", nil)
		out = row
		return nil
	})
	return out, err
}

func (s *Service) GetAI(ctx context.Context) (domain.AIView, error) {
	row, err := s.repo.FindAI(ctx, s.db)
	if err != nil {
		return domain.AIView{}, err
	}
	return aiView(row), nil
}

func (s *Service) UpsertAI(ctx context.Context, req domain.UpsertAIRequest) (domain.AIView, error) {
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	switch provider {
	case domain.AIProviderOpenAI, domain.AIProviderAnthropic, domain.AIProviderGemini:
	default:
		return domain.AIView{}, domain.ErrInvalidProvider
	}
	temperature := decimal.NewFromFloat(0.3)
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if temperature.IsNegative() || temperature.GreaterThan(decimal.NewFromInt(2)) {
		return domain.AIView{}, domain.ErrInvalidTemperature
	}

	var view domain.AIView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindAI(ctx, tx)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		row := domain.AISettings{
			ID:           s.genID.Generate(),
			Provider:     provider,
			Model:        strings.TrimSpace(req.Model),
			SystemPrompt: strings.TrimSpace(req.SystemPrompt),
			Temperature:  temperature.Round(2),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if existing != nil {
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			row.IsActive = existing.IsActive
			// A key issued by one provider is useless to another.
			if existing.Provider == provider {
				row.APIKey = existing.APIKey
			}
		}
		if key := strings.TrimSpace(req.APIKey); key != "" {
			if row.APIKey, err = s.box.seal(key); err != nil {
				return err
			}
		}
		if req.IsActive != nil {
			row.IsActive = *req.IsActive
		}
		if row.IsActive && row.APIKey == "" {
			return domain.ErrInvalidCredentials
		}
		if err := s.repo.UpsertAI(ctx, tx, &row); err != nil {
			return err
		}
		s.audit(ctx, tx, "settings.ai.update", "ai", map[string]any{
			"provider":  row.Provider,
			"model":     row.Model,
			"is_active": row.IsActive,
		})
		view = aiView(&row)
		return nil
	})
	if err != nil {
		return domain.AIView{}, err
	}
	return view, nil
}

func (s *Service) setActive(ctx context.Context, table, target string, active bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.repo.SetActive(ctx, tx, table, active, s.clock.Now())
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrNotConfigured
		}
		action := "settings." + target + ".disable"
		if active {
			action = "settings." + target + ".enable"
		}
		s.audit(ctx, tx, action, target, map[string]any{"is_active": active})
		return nil
	})
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action, target string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, tx, action, "settings", target, metadata)
}

func (s *Service) payPalView(row *domain.PayPalSettings) domain.PayPalView {
	if row == nil {
		return domain.PayPalView{Environment: domain.PayPalEnvironmentSandbox}
	}
	view := domain.PayPalView{
		Configured:  true,
		ClientID:    row.ClientID,
		Environment: row.Environment,
		IsActive:    row.IsActive,
		UpdatedAt:   row.UpdatedAt,
	}
	if plain, err := s.box.open(row.ClientSecret); err == nil {
		view.ClientSecret = masking.MaskSecret(plain)
	}
	return view
}

func (s *Service) stripeView(row *domain.StripeSettings) domain.StripeView {
	if row == nil {
		return domain.StripeView{}
	}
	view := domain.StripeView{
		Configured:     true,
		PublishableKey: row.PublishableKey,
		IsActive:       row.IsActive,
		UpdatedAt:      row.UpdatedAt,
	}
	if plain, err := s.box.open(row.SecretKey); err == nil {
		view.SecretKey = masking.MaskSecret(plain)
		view.Mode = stripeMode(plain)
	}
	if plain, err := s.box.open(row.WebhookSecret); err == nil {
		view.WebhookSecret = masking.MaskSecret(plain)
	}
	return view
}

func emailView(row *domain.EmailSettings) domain.EmailView {
	if row == nil {
		return domain.EmailView{SMTPPort: 587}
	}
	view := domain.EmailView{
		Configured: true,
		SMTPHost:   row.SMTPHost,
		SMTPPort:   row.SMTPPort,
		Username:   row.Username,
		FromEmail:  row.FromEmail,
		FromName:   row.FromName,
		IsActive:   row.IsActive,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.Password != "" {
		view.Password = "****"
	}
	return view
}

func aiView(row *domain.AISettings) domain.AIView {
	if row == nil {
		return domain.AIView{Provider: domain.AIProviderOpenAI, Temperature: decimal.NewFromFloat(0.3)}
	}
	view := domain.AIView{
		Configured:   true,
		Provider:     row.Provider,
		Model:        row.Model,
		SystemPrompt: row.SystemPrompt,
		Temperature:  row.Temperature,
		IsActive:     row.IsActive,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.APIKey != "" {
		view.APIKey = "****"
	}
	return view
}

func payPalBaseURL(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), domain.PayPalEnvironmentLive) {
		return payPalLiveURL
	}
	return payPalSandboxURL
}

func stripeMode(secretKey string) string {
	switch {
	case strings.HasPrefix(secretKey, "sk_test_"), strings.HasPrefix(secretKey, "rk_test_"):
		return domain.StripeModeTest
	case strings.HasPrefix(secretKey, "sk_live_"), strings.HasPrefix(secretKey, "rk_live_"):
		return domain.StripeModeLive
	default:
		return ""
	}
}
