package payment

import (
	"github.com/smallbiznis/glazeops/internal/currency"
	"github.com/smallbiznis/glazeops/internal/payment/adapters"
	"github.com/smallbiznis/glazeops/internal/payment/adapters/paypal"
	"github.com/smallbiznis/glazeops/internal/payment/adapters/stripe"
	"github.com/smallbiznis/glazeops/internal/payment/checkout"
	"github.com/smallbiznis/glazeops/internal/payment/export"
	"github.com/smallbiznis/glazeops/internal/payment/repository"
	paymentservice "github.com/smallbiznis/glazeops/internal/payment/service"
	"github.com/smallbiznis/glazeops/internal/payment/verification"
	"github.com/smallbiznis/glazeops/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			stripe.NewFactory(),
		)
	}),
	fx.Provide(paypal.New),
	fx.Provide(currency.NewFixedRateProvider),
	fx.Provide(checkout.ProvideGateway),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
	fx.Provide(checkout.NewService),
	fx.Provide(verification.NewService),
	fx.Provide(export.NewService),
)
