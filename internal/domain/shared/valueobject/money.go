package valueobject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar (default)
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	CAD Currency = "CAD" // Canadian Dollar
	AUD Currency = "AUD" // Australian Dollar
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = USD

// NormalizeCurrency upper-cases and trims a currency code, falling back to
// DefaultCurrency when empty.
func NormalizeCurrency(code string) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return Currency(code)
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// Lower returns the lower-case code expected by payment gateways
func (c Currency) Lower() string {
	return strings.ToLower(string(c))
}

// IsValid reports whether the code has the ISO 4217 shape (three letters)
func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// ErrCurrencyMismatch is returned when amounts in different currencies are combined
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money is a value object holding an amount in minor units (cents).
// It is immutable - all operations return new Money instances.
type Money struct {
	cents    int64
	currency Currency
}

// NewMoney creates Money from cents and a currency
func NewMoney(cents int64, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	if !currency.IsValid() {
		return Money{}, fmt.Errorf("invalid currency code: %s", currency)
	}
	return Money{cents: cents, currency: currency}, nil
}

// FromCents wraps a stored amount. The code is normalized but not validated:
// stored rows were validated when written.
func FromCents(cents int64, code string) Money {
	return Money{cents: cents, currency: NormalizeCurrency(code)}
}

// Zero returns a zero amount in the given currency
func Zero(currency Currency) Money {
	return Money{currency: currency}
}

// Cents returns the amount in minor units
func (m Money) Cents() int64 {
	return m.cents
}

// Currency returns the currency
func (m Money) Currency() Currency {
	return m.currency
}

// Decimal returns the amount in major units
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.cents, -2)
}

// Add returns the sum of two amounts in the same currency
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{cents: m.cents + other.cents, currency: m.currency}, nil
}

// MultiplyQuantity returns the amount multiplied by an integer quantity
func (m Money) MultiplyQuantity(qty int) Money {
	return Money{cents: m.cents * int64(qty), currency: m.currency}
}

// IsNegative reports whether the amount is below zero
func (m Money) IsNegative() bool {
	return m.cents < 0
}

// Display returns the human readable amount, e.g. "$12.50"
func (m Money) Display() string {
	return FormatCents(m.cents)
}

// String returns "12.50 USD"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(2), m.currency)
}

// FormatCents renders a cents amount as a dollar display string
func FormatCents(cents int64) string {
	d := decimal.New(cents, -2)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
