package money

// Code represents a currency code (e.g., "USD", "EUR").
type Code string

// Common currency codes
const (
	USD Code = "USD" // US Dollar
	EUR Code = "EUR" // Euro
	JPY Code = "JPY" // Japanese Yen
	KWD Code = "KWD" // Kuwaiti Dinar
	GBP Code = "GBP" // British Pound
)

// DefaultCurrency is used when an account is opened without an explicit currency.
const DefaultCurrency = USD

var decimalsByCode = map[Code]int32{
	USD: 2,
	EUR: 2,
	GBP: 2,
	JPY: 0,
	KWD: 3,
}

// IsValid reports whether the code is three upper-case ASCII letters.
func (c Code) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	return c[0] >= 'A' && c[0] <= 'Z' &&
		c[1] >= 'A' && c[1] <= 'Z' &&
		c[2] >= 'A' && c[2] <= 'Z'
}

// Decimals returns the number of minor-unit digits for the currency.
// Unknown but well-formed codes use two.
func (c Code) Decimals() int32 {
	if d, ok := decimalsByCode[c]; ok {
		return d
	}
	return 2
}

// String returns the string representation of the currency code.
func (c Code) String() string {
	return string(c)
}
