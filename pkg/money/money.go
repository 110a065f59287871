// Package money provides functionality for handling monetary values.
//
// It is a value object that represents a monetary value in a specific currency.
// Invariants:
//   - Amount is a fixed-point decimal, never a binary float.
//   - Amount never carries more fractional digits than the currency allows.
//   - Currency code must be valid ISO 4217 (3 uppercase letters).
//   - All arithmetic operations require matching currencies.
package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxIntegerDigits is the widest integer part an amount may carry. Ledger
// columns are NUMERIC(20,3), which leaves room for 17 digits left of the point.
const MaxIntegerDigits = 17

// Money represents a monetary value in a specific currency.
type Money struct {
	amount   decimal.Decimal
	currency Code
}

// New creates a Money value. The amount must fit the currency scale exactly;
// 10.005 USD is rejected rather than silently rounded.
func New(amount decimal.Decimal, code Code) (Money, error) {
	if code == "" {
		code = DefaultCurrency
	}
	if !code.IsValid() {
		return Money{}, ErrInvalidCurrency
	}
	if amount.IsZero() {
		amount = decimal.Zero
	}
	if err := checkRange(amount); err != nil {
		return Money{}, err
	}
	scale := code.Decimals()
	// A coefficient of n digits has at most n-1 trailing zeros, so an exponent
	// further right than that always leaves a non-zero digit past the scale.
	if -int64(amount.Exponent())-int64(scale) > numDigits(amount) ||
		!amount.Equal(amount.Truncate(scale)) {
		return Money{}, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, scale)
	}
	return Money{amount: amount, currency: code}, nil
}

// checkRange works on the coefficient and exponent only; rendering or
// rescaling an amount like 1e20000000 would allocate megabytes.
func checkRange(amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if numDigits(amount)+int64(amount.Exponent()) > MaxIntegerDigits {
		return fmt.Errorf("%w: more than %d integer digits", ErrInvalidAmount, MaxIntegerDigits)
	}
	return nil
}

// numDigits counts the coefficient's digits exactly. decimal.NumDigits goes
// through float64 logarithms and can be off by one near powers of ten.
func numDigits(amount decimal.Decimal) int64 {
	c := amount.Coefficient()
	return int64(len(c.Abs(c).Text(10)))
}

// Parse parses a decimal string such as "150.25".
func Parse(s string, code Code) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return New(d, code)
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string, code Code) Money {
	m, err := Parse(s, code)
	if err != nil {
		panic(err)
	}
	return m
}

// FromStorage hydrates a Money from a stored decimal, rounding to the currency
// scale. Storage engines without a native numeric type may hand back values
// such as 0.30000000000000004 for aggregates.
func FromStorage(amount decimal.Decimal, code string) Money {
	c := Code(code)
	if c == "" {
		c = DefaultCurrency
	}
	return Money{amount: amount.Round(c.Decimals()), currency: c}
}

// Zero returns a zero amount in the given currency.
func Zero(code Code) Money {
	if code == "" {
		code = DefaultCurrency
	}
	return Money{amount: decimal.Zero, currency: code}
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency of the Money object.
func (m Money) Currency() Code {
	return m.currency
}

// Add adds another Money object to the current Money object.
func (m Money) Add(other Money) (Money, error) {
	if !m.IsSameCurrency(other) {
		return Money{}, ErrMismatchedCurrencies
	}
	sum := m.amount.Add(other.amount)
	if err := checkRange(sum); err != nil {
		return Money{}, err
	}
	return Money{amount: sum, currency: m.currency}, nil
}

// Sub subtracts another Money object from the current Money object.
func (m Money) Sub(other Money) (Money, error) {
	if !m.IsSameCurrency(other) {
		return Money{}, ErrMismatchedCurrencies
	}
	diff := m.amount.Sub(other.amount)
	if err := checkRange(diff); err != nil {
		return Money{}, err
	}
	return Money{amount: diff, currency: m.currency}, nil
}

// Neg negates the current Money object.
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Abs returns the absolute value of the Money amount.
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// Cmp compares two amounts of the same currency.
func (m Money) Cmp(other Money) (int, error) {
	if !m.IsSameCurrency(other) {
		return 0, ErrMismatchedCurrencies
	}
	return m.amount.Cmp(other.amount), nil
}

// GreaterThan checks if the current Money object is greater than another Money object.
func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c > 0, err
}

// LessThan checks if the current Money object is less than another Money object.
func (m Money) LessThan(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c < 0, err
}

// Equals checks if the current Money object is equal to another Money object.
// Returns false if currencies do not match.
func (m Money) Equals(other Money) bool {
	return m.IsSameCurrency(other) && m.amount.Equal(other.amount)
}

// IsSameCurrency checks if the current Money object has the same currency as another Money object.
func (m Money) IsSameCurrency(other Money) bool {
	return m.currency == other.currency
}

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// StringFixed renders the amount with exactly the currency's number of decimals.
func (m Money) StringFixed() string {
	return m.amount.StringFixed(m.currency.Decimals())
}

// String returns "150.25 USD".
func (m Money) String() string {
	return m.StringFixed() + " " + m.currency.String()
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON renders the amount as a string to keep full precision on the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.StringFixed(), Currency: m.currency.String()})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := Parse(raw.Amount, Code(raw.Currency))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
