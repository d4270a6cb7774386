package currency

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertAEDToUSD(t *testing.T) {
	rates := NewFixedRateProvider(config.NewStaticPaymentsConfigHolder(config.DefaultPaymentsConfig()))
	ctx := context.Background()

	cases := []struct {
		in   string
		want string
	}{
		{"100.00", "27"},
		{"350", "94.5"},
		{"1", "0.27"},
		{"0.05", "0.01"},
	}
	for _, tc := range cases {
		got, err := Convert(ctx, rates, decimal.RequireFromString(tc.in), AED, USD)
		require.NoError(t, err, tc.in)
		assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "%s AED -> %s USD, got %s", tc.in, tc.want, got)
	}
}

func TestConvertRoundsSmallAmountsToZero(t *testing.T) {
	rates := NewFixedRateProvider(config.NewStaticPaymentsConfigHolder(config.DefaultPaymentsConfig()))
	got, err := Convert(context.Background(), rates, decimal.RequireFromString("0.01"), AED, USD)
	require.NoError(t, err)
	assert.Equal(t, "0.00", got.StringFixed(2))
	assert.True(t, got.IsZero())
}

func TestUnsupportedPair(t *testing.T) {
	rates := NewFixedRateProvider(config.NewStaticPaymentsConfigHolder(config.DefaultPaymentsConfig()))
	_, err := rates.Rate(context.Background(), "EUR", USD)
	assert.ErrorIs(t, err, ErrUnsupportedPair)

	same, err := rates.Rate(context.Background(), "usd", USD)
	require.NoError(t, err)
	assert.True(t, same.Equal(decimal.NewFromInt(1)))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, "150.25", FromMinorUnits(15025).StringFixed(2))
	assert.Equal(t, int64(15025), ToMinorUnits(decimal.RequireFromString("150.25")))
}
