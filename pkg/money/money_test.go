package money_test

import (
	"encoding/json"
	"testing"

	"github.com/amirasaad/banking/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Precision(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency money.Code
		expected string
		wantErr  error
	}{
		{"USD with cents", "100.50", money.USD, "100.50 USD", nil},
		{"USD whole", "7", money.USD, "7.00 USD", nil},
		{"JPY without cents", "1000", money.JPY, "1000 JPY", nil},
		{"KWD with 3 decimals", "100.123", money.KWD, "100.123 KWD", nil},
		{"USD with more than 2 decimals", "100.999", money.USD, "", money.ErrInvalidAmount},
		{"JPY with cents", "1000.5", money.JPY, "", money.ErrInvalidAmount},
		{"Invalid currency", "1", money.Code("usd"), "", money.ErrInvalidCurrency},
		{"Not a number", "ten", money.USD, "", money.ErrInvalidAmount},
		{"Empty currency defaults", "3.10", "", "3.10 USD", nil},
		{"Trailing zeros within scale", "100.500", money.USD, "100.50 USD", nil},
		{"Largest storable amount", "99999999999999999.99", money.USD, "99999999999999999.99 USD", nil},
		{"Too many integer digits", "100000000000000000", money.USD, "", money.ErrInvalidAmount},
		{"Exponent notation overflow", "1e30", money.USD, "", money.ErrInvalidAmount},
		{"Huge exponent", "1e20000000", money.USD, "", money.ErrInvalidAmount},
		{"Tiny exponent", "1e-20000000", money.USD, "", money.ErrInvalidAmount},
		{"Zero with tiny exponent", "0e-20000000", money.USD, "0.00 USD", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := money.Parse(tt.amount, tt.currency)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.String())
		})
	}
}

func TestArithmetic_NoFloatDrift(t *testing.T) {
	sum := money.Zero(money.USD)
	tenCents := money.MustParse("0.10", money.USD)
	var err error
	for i := 0; i < 10; i++ {
		sum, err = sum.Add(tenCents)
		require.NoError(t, err)
	}
	assert.True(t, sum.Equals(money.MustParse("1.00", money.USD)))

	diff, err := sum.Sub(money.MustParse("1.01", money.USD))
	require.NoError(t, err)
	assert.True(t, diff.IsNegative())
	assert.Equal(t, "0.01 USD", diff.Abs().String())
	assert.Equal(t, "-0.01 USD", diff.String())
}

func TestArithmetic_Overflow(t *testing.T) {
	largest := money.MustParse("99999999999999999.99", money.USD)

	_, err := largest.Add(money.MustParse("0.01", money.USD))
	require.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = largest.Neg().Sub(money.MustParse("1", money.USD))
	require.ErrorIs(t, err, money.ErrInvalidAmount)

	sum, err := largest.Add(largest.Neg())
	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

func TestNew_ErrorOmitsAmount(t *testing.T) {
	_, err := money.New(decimal.New(1, 20000000), money.USD)
	require.ErrorIs(t, err, money.ErrInvalidAmount)
	assert.Less(t, len(err.Error()), 100)
}

func TestCurrencyMismatch(t *testing.T) {
	usd := money.MustParse("1", money.USD)
	eur := money.MustParse("1", money.EUR)

	_, err := usd.Add(eur)
	require.ErrorIs(t, err, money.ErrMismatchedCurrencies)
	_, err = usd.GreaterThan(eur)
	require.ErrorIs(t, err, money.ErrMismatchedCurrencies)
	assert.False(t, usd.Equals(eur))
}

func TestComparisons(t *testing.T) {
	a := money.MustParse("150", money.USD)
	b := money.MustParse("100", money.USD)

	gt, err := a.GreaterThan(b)
	require.NoError(t, err)
	assert.True(t, gt)

	lt, err := a.LessThan(b)
	require.NoError(t, err)
	assert.False(t, lt)

	assert.True(t, b.Neg().IsNegative())
	assert.True(t, money.Zero(money.USD).IsZero())
}

func TestFromStorage_RoundsAggregates(t *testing.T) {
	m := money.FromStorage(decimal.NewFromFloat(0.1+0.2), "USD")
	assert.Equal(t, "0.30 USD", m.String())
}

func TestJSON(t *testing.T) {
	m := money.MustParse("42.5", money.USD)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"42.50","currency":"USD"}`, string(data))

	var back money.Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equals(m))
}
