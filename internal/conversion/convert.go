package conversion

import (
	"errors"
	"math"

	"github.com/GriffinCanCode/zentat/internal/detection"
)

// ErrNoRate reports a currency missing from the rate table.
var ErrNoRate = errors.New("conversion: no rate available")

// RateSource exposes the rate for one currency. A missing, zero, negative or
// NaN rate means the currency is unavailable.
type RateSource interface {
	Rate(currency string) (float64, bool)
}

// Result is a converted price. It is derived on demand and never stored.
type Result struct {
	Original  string  `json:"original"`
	Amount    float64 `json:"amount"`
	Formatted string  `json:"formatted"`
	Currency  string  `json:"currency"`
}

// Convert multiplies p's amount by its currency rate and formats the result.
// It reports false when no usable rate exists.
func Convert(p detection.ParsedPrice, rates RateSource, precision Precision, unit string) (Result, bool) {
	r, err := Lookup(rates, p.Currency)
	if err != nil {
		return Result{}, false
	}
	amount := p.Amount * r
	return Result{
		Original:  p.Original,
		Amount:    amount,
		Formatted: FormatWithUnit(amount, precision, unit),
		Currency:  p.Currency,
	}, true
}

// Lookup returns a usable rate or ErrNoRate.
func Lookup(rates RateSource, currency string) (float64, error) {
	if rates == nil {
		return 0, ErrNoRate
	}
	r, ok := rates.Rate(currency)
	if !ok || math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return 0, ErrNoRate
	}
	return r, nil
}
