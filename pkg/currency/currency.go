// Package currency converts between user-entered decimal amounts and integer cents, and
// renders cents for display. Arithmetic on money elsewhere is int64 cents only.
package currency

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const DefaultCode = money.EUR

// MaxAbsCents bounds any single amount (10 billion in major units). Project totals are
// sums of such amounts, so the bound keeps them far from int64 overflow.
const MaxAbsCents int64 = 1_000_000_000_000

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrOutOfRange    = errors.New("amount out of range")

	maxCents = decimal.NewFromInt(MaxAbsCents)
	minCents = decimal.NewFromInt(-MaxAbsCents)
)

// CheckRange reports ErrOutOfRange for cents outside [-MaxAbsCents, MaxAbsCents].
func CheckRange(cents int64) error {
	if cents > MaxAbsCents || cents < -MaxAbsCents {
		return ErrOutOfRange
	}
	return nil
}

// ParseCents parses a decimal major-unit amount ("1999.99", "-5", "0.5") into cents,
// rounding half away from zero at the cent.
func ParseCents(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, ErrOutOfRange
	}
	return cents.IntPart(), nil
}

// Formatter renders cents in one currency.
type Formatter struct {
	code string
}

// NewFormatter returns a formatter for an ISO 4217 code, falling back to DefaultCode for
// codes go-money does not know.
func NewFormatter(code string) Formatter {
	code = strings.ToUpper(strings.TrimSpace(code))
	if money.GetCurrency(code) == nil {
		code = DefaultCode
	}
	return Formatter{code: code}
}

func (f Formatter) Code() string { return f.code }

// Format renders cents with the currency's grapheme and separators.
func (f Formatter) Format(cents int64) string {
	return money.New(cents, f.code).Display()
}

// FormatSigned always prefixes a sign, as change deltas are shown to clients.
func (f Formatter) FormatSigned(cents int64) string {
	if cents < 0 {
		if cents == math.MinInt64 {
			return f.Format(cents)
		}
		return "-" + f.Format(-cents)
	}
	return "+" + f.Format(cents)
}
