package currency

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultCurrency is the currency deposits are taken in unless stated otherwise
	DefaultCurrency = "DKK"
	// DefaultDecimals is the default number of decimal places for currencies
	DefaultDecimals = 2
)

var (
	// ErrUnknownCurrency is returned when a code is not an ISO 4217 code we know.
	ErrUnknownCurrency = errors.New("unknown currency code")
	// ErrInvalidDecimalPlaces is returned when an amount has more decimals than the currency allows.
	ErrInvalidDecimalPlaces = errors.New("amount has more decimal places than allowed by the currency")
)

// Meta holds the ISO 4217 identity of a currency.
type Meta struct {
	Alpha    string `json:"alpha"`
	Numeric  int    `json:"numeric"`
	Decimals int    `json:"decimals"`
}

func (m Meta) String() string { return m.Alpha }

// ToMinorUnits converts a major-unit amount into the currency's smallest unit.
func (m Meta) ToMinorUnits(amount decimal.Decimal) (int64, error) {
	scaled := amount.Shift(int32(m.Decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s %s", ErrInvalidDecimalPlaces, amount.String(), m.Alpha)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s %s out of range", amount.String(), m.Alpha)
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits.
func (m Meta) FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -int32(m.Decimals))
}

var catalogue = []Meta{
	{Alpha: "AUD", Numeric: 36, Decimals: 2},
	{Alpha: "CAD", Numeric: 124, Decimals: 2},
	{Alpha: "CHF", Numeric: 756, Decimals: 2},
	{Alpha: "CNY", Numeric: 156, Decimals: 2},
	{Alpha: "CZK", Numeric: 203, Decimals: 2},
	{Alpha: "DKK", Numeric: 208, Decimals: 2},
	{Alpha: "EUR", Numeric: 978, Decimals: 2},
	{Alpha: "GBP", Numeric: 826, Decimals: 2},
	{Alpha: "HKD", Numeric: 344, Decimals: 2},
	{Alpha: "HUF", Numeric: 348, Decimals: 2},
	{Alpha: "ISK", Numeric: 352, Decimals: 0},
	{Alpha: "JPY", Numeric: 392, Decimals: 0},
	{Alpha: "KWD", Numeric: 414, Decimals: 3},
	{Alpha: "NOK", Numeric: 578, Decimals: 2},
	{Alpha: "NZD", Numeric: 554, Decimals: 2},
	{Alpha: "PLN", Numeric: 985, Decimals: 2},
	{Alpha: "SEK", Numeric: 752, Decimals: 2},
	{Alpha: "SGD", Numeric: 702, Decimals: 2},
	{Alpha: "USD", Numeric: 840, Decimals: 2},
	{Alpha: "ZAR", Numeric: 710, Decimals: 2},
}

var (
	byAlpha   = make(map[string]Meta, len(catalogue))
	byNumeric = make(map[int]Meta, len(catalogue))
)

func init() {
	for _, m := range catalogue {
		byAlpha[m.Alpha] = m
		byNumeric[m.Numeric] = m
	}
}

// ByAlpha looks up a currency by its three-letter code, ignoring case.
func ByAlpha(code string) (Meta, error) {
	m, ok := byAlpha[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Meta{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return m, nil
}

// ByNumeric looks up a currency by its ISO 4217 numeric code (208 -> DKK).
func ByNumeric(code int) (Meta, error) {
	m, ok := byNumeric[code]
	if !ok {
		return Meta{}, fmt.Errorf("%w: %d", ErrUnknownCurrency, code)
	}
	return m, nil
}

// Parse resolves raw as a numeric code when it is an integer and as an
// alpha code otherwise.
func Parse(raw string) (Meta, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return ByNumeric(n)
	}
	return ByAlpha(raw)
}

// IsSupported checks if a currency code is known
func IsSupported(code string) bool {
	_, err := ByAlpha(code)
	return err == nil
}

// ListSupported returns every known alpha code
func ListSupported() []string {
	out := make([]string, 0, len(catalogue))
	for _, m := range catalogue {
		out = append(out, m.Alpha)
	}
	return out
}
