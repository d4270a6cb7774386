package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PaymentsConfig is the operator-tunable part of the configuration. It lives
// in payments.yml and is reloaded without a restart.
type PaymentsConfig struct {
	ExchangeRates []ExchangeRate  `mapstructure:"exchangeRates"`
	Webhook       WebhookConfig   `mapstructure:"webhook"`
	Campaign      CampaignConfig  `mapstructure:"campaign"`
	Assistant     AssistantConfig `mapstructure:"assistant"`
	Booking       BookingConfig   `mapstructure:"booking"`
}

type ExchangeRate struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
	Rate string `mapstructure:"rate"`
}

type WebhookConfig struct {
	Tolerance   time.Duration `mapstructure:"tolerance"`
	MaxAttempts int           `mapstructure:"maxAttempts"`
}

type CampaignConfig struct {
	SendDelay     time.Duration `mapstructure:"sendDelay"`
	RatePerSecond int           `mapstructure:"ratePerSecond"`
	Burst         int           `mapstructure:"burst"`
}

type AssistantConfig struct {
	AutoApproveThreshold float64 `mapstructure:"autoApproveThreshold"`
	MaxContextChars      int     `mapstructure:"maxContextChars"`
}

// BookingConfig prices the public site-visit booking form.
type BookingConfig struct {
	Fee string `mapstructure:"fee"`
}

// FeeAmount returns the booking fee in the home currency.
func (c BookingConfig) FeeAmount() decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.Fee))
	if err != nil {
		return decimal.Zero
	}
	return fee
}

func DefaultPaymentsConfig() PaymentsConfig {
	return PaymentsConfig{
		ExchangeRates: []ExchangeRate{
			{From: "AED", To: "USD", Rate: "0.27"},
		},
		Webhook: WebhookConfig{
			Tolerance:   5 * time.Minute,
			MaxAttempts: 10,
		},
		Campaign: CampaignConfig{
			SendDelay:     time.Second,
			RatePerSecond: 1,
			Burst:         1,
		},
		Assistant: AssistantConfig{
			AutoApproveThreshold: 0.8,
			MaxContextChars:      10000,
		},
		Booking: BookingConfig{
			Fee: "150.00",
		},
	}
}

// Rate returns the configured conversion rate between two currencies.
func (c PaymentsConfig) Rate(from, to string) (decimal.Decimal, bool) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	for _, r := range c.ExchangeRates {
		if strings.EqualFold(r.From, from) && strings.EqualFold(r.To, to) {
			rate, err := decimal.NewFromString(strings.TrimSpace(r.Rate))
			if err != nil {
				return decimal.Zero, false
			}
			return rate, true
		}
	}
	return decimal.Zero, false
}

type PaymentsConfigHolder struct {
	current atomic.Value // holds PaymentsConfig
}

func NewPaymentsConfigHolder() (*PaymentsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("payments")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/glazeops/config")
	v.AddConfigPath("/etc/glazeops")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GLAZEOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setPaymentsDefaults(v, DefaultPaymentsConfig())

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg PaymentsConfig
	if err := v.UnmarshalKey("payments", &cfg); err != nil {
		return nil, err
	}
	if err := validatePaymentsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PaymentsConfigHolder{}
	holder.current.Store(cfg)

	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PaymentsConfig
		if err := v.UnmarshalKey("payments", &updated); err != nil {
			zap.L().Warn("payments config reload failed", zap.Error(err))
			return
		}
		if err := validatePaymentsConfig(updated); err != nil {
			zap.L().Warn("invalid payments config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		zap.L().Info("payments config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticPaymentsConfigHolder returns a holder that never reloads.
func NewStaticPaymentsConfigHolder(cfg PaymentsConfig) *PaymentsConfigHolder {
	holder := &PaymentsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PaymentsConfigHolder) Get() PaymentsConfig {
	if h == nil {
		return DefaultPaymentsConfig()
	}
	return h.current.Load().(PaymentsConfig)
}

func setPaymentsDefaults(v *viper.Viper, defaults PaymentsConfig) {
	rates := make([]map[string]any, 0, len(defaults.ExchangeRates))
	for _, r := range defaults.ExchangeRates {
		rates = append(rates, map[string]any{"from": r.From, "to": r.To, "rate": r.Rate})
	}
	v.SetDefault("payments.exchangeRates", rates)
	v.SetDefault("payments.webhook.tolerance", defaults.Webhook.Tolerance.String())
	v.SetDefault("payments.webhook.maxAttempts", defaults.Webhook.MaxAttempts)
	v.SetDefault("payments.campaign.sendDelay", defaults.Campaign.SendDelay.String())
	v.SetDefault("payments.campaign.ratePerSecond", defaults.Campaign.RatePerSecond)
	v.SetDefault("payments.campaign.burst", defaults.Campaign.Burst)
	v.SetDefault("payments.assistant.autoApproveThreshold", defaults.Assistant.AutoApproveThreshold)
	v.SetDefault("payments.assistant.maxContextChars", defaults.Assistant.MaxContextChars)
	v.SetDefault("payments.booking.fee", defaults.Booking.Fee)
}

func validatePaymentsConfig(cfg PaymentsConfig) error {
	if len(cfg.ExchangeRates) == 0 {
		return errors.New("payments.exchangeRates cannot be empty")
	}
	for _, r := range cfg.ExchangeRates {
		rate, err := decimal.NewFromString(strings.TrimSpace(r.Rate))
		if err != nil {
			return fmt.Errorf("payments.exchangeRates %s->%s: %w", r.From, r.To, err)
		}
		if !rate.IsPositive() {
			return fmt.Errorf("payments.exchangeRates %s->%s must be positive", r.From, r.To)
		}
	}
	if cfg.Webhook.Tolerance <= 0 {
		return errors.New("payments.webhook.tolerance must be positive")
	}
	if cfg.Webhook.MaxAttempts <= 0 {
		return errors.New("payments.webhook.maxAttempts must be positive")
	}
	if cfg.Campaign.SendDelay < 0 {
		return errors.New("payments.campaign.sendDelay cannot be negative")
	}
	if cfg.Assistant.AutoApproveThreshold < 0 || cfg.Assistant.AutoApproveThreshold > 1 {
		return errors.New("payments.assistant.autoApproveThreshold must be within [0,1]")
	}
	if cfg.Assistant.MaxContextChars <= 0 {
		return errors.New("payments.assistant.maxContextChars must be positive")
	}
	if !cfg.Booking.FeeAmount().IsPositive() {
		return errors.New("payments.booking.fee must be a positive amount")
	}
	return nil
}
