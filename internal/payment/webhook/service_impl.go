package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/payment/adapters"
	"github.com/smallbiznis/glazeops/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	PaymentSvc  paymentdomain.Service
	Adapters    *adapters.Registry
	Settings    settingsdomain.Accessor
	PaymentsCfg *config.PaymentsConfigHolder
}

type Service struct {
	log         *zap.Logger
	clock       clock.Clock
	paymentSvc  paymentdomain.Service
	adapters    *adapters.Registry
	settings    settingsdomain.Accessor
	paymentsCfg *config.PaymentsConfigHolder
}

func NewService(p Params) paymentdomain.WebhookService {
	log := p.Log.Named("payment.webhook")
	log.Info("webhook gateways registered", zap.Strings("gateways", p.Adapters.Gateways()))
	return &Service{
		log:         log,
		clock:       p.Clock,
		paymentSvc:  p.PaymentSvc,
		adapters:    p.Adapters,
		settings:    p.Settings,
		paymentsCfg: p.PaymentsCfg,
	}
}

// IngestWebhook authenticates the payload before anything is written.
// Replays of processed events and events past their retry budget are
// acknowledged without side effects.
func (s *Service) IngestWebhook(ctx context.Context, gateway string, payload []byte, headers http.Header) error {
	gateway = strings.ToLower(strings.TrimSpace(gateway))
	if s.adapters == nil || !s.adapters.ProviderExists(gateway) {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	adapter, err := s.adapter(ctx, gateway)
	if err != nil {
		return err
	}
	if signed, ok := adapter.(interface{ Signed() bool }); ok && !signed.Signed() {
		s.log.Warn("webhook secret not configured, accepting unsigned payload", zap.String("gateway", gateway))
	}
	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("gateway", gateway), zap.Error(err))
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return nil
		}
		return err
	}
	event.Gateway = gateway
	if event.RawPayload == nil {
		event.RawPayload = payload
	}

	err = s.paymentSvc.ProcessEvent(ctx, event)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		s.log.Info("webhook event already processed", zap.String("event_id", event.EventID))
		return nil
	case errors.Is(err, paymentdomain.ErrRetryBudgetExhausted):
		return nil
	default:
		s.log.Error("webhook processing failed",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		return err
	}
}

func (s *Service) adapter(ctx context.Context, gateway string) (paymentdomain.PaymentAdapter, error) {
	cfg := paymentdomain.AdapterConfig{Now: s.clock.Now}
	if s.paymentsCfg != nil {
		cfg.Tolerance = s.paymentsCfg.Get().Webhook.Tolerance
	}
	if gateway == paymentdomain.GatewayStripe {
		secret, err := s.settings.StripeWebhookSecret(ctx)
		if err != nil {
			return nil, err
		}
		cfg.WebhookSecret = secret
		if cfg.Tolerance <= 0 {
			cfg.Tolerance = stripe.DefaultTolerance
		}
	}
	return s.adapters.NewAdapter(gateway, cfg)
}
