package currency

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/internal/config"
	"go.uber.org/fx"
)

const (
	AED = "AED"
	USD = "USD"
)

var Module = fx.Module("currency",
	fx.Provide(NewFixedRateProvider),
)

var (
	ErrUnsupportedPair = errors.New("unsupported_currency_pair")
	ErrAmountTooSmall  = errors.New("converted_amount_too_small")
)

// RateProvider returns the multiplier that converts one unit of from into to.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// FixedRateProvider serves the rates from payments.yml. The AED/USD peg makes
// a fixed table an acceptable approximation for the settlement currency.
type FixedRateProvider struct {
	holder *config.PaymentsConfigHolder
}

func NewFixedRateProvider(holder *config.PaymentsConfigHolder) RateProvider {
	return &FixedRateProvider{holder: holder}
}

func (p *FixedRateProvider) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(to)) {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := p.holder.Get().Rate(from, to)
	if !ok {
		return decimal.Zero, ErrUnsupportedPair
	}
	return rate, nil
}

// Convert returns round(amount*rate, 2). Small amounts may round to zero;
// callers that cannot charge zero check for ErrAmountTooSmall themselves.
func Convert(ctx context.Context, rates RateProvider, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rate, err := rates.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(2), nil
}

// FromMinorUnits converts an integer amount in the currency's minor unit
// (fils, cents) to a two-decimal amount.
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// ToMinorUnits is the inverse of FromMinorUnits.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
