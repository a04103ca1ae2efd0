package conversion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/zentat/internal/detection"
)

type rateMap map[string]float64

func (m rateMap) Rate(currency string) (float64, bool) {
	r, ok := m[currency]
	return r, ok
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		precision Precision
		want      string
	}{
		{"zero", 0, Auto(), "0.00"},
		{"tiny", 0.00001, Auto(), "0.00001000"},
		{"half", 0.5, Auto(), "0.5000"},
		{"small", 0.0123456, Auto(), "0.01235"},
		{"below cap", 0.000000001, Auto(), "0.00000000"},
		{"two digits", 12.3456, Auto(), "12.35"},
		{"one digit", 1.23456, Auto(), "1.235"},
		{"three digits", 999.994, Auto(), "999.99"},
		{"fixed zero decimals rounds half away from zero", 2.5, Fixed(0), "3"},
		{"fixed two", 0.125, Fixed(2), "0.13"},
		{"fixed pads", 7, Fixed(3), "7.000"},
		{"fixed clamps", 1, Fixed(20), "1.00000000"},
		{"fixed negative clamps", 1.6, Fixed(-3), "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.amount, tt.precision))
		})
	}
}

func TestFormatWithUnit(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		unit   string
		want   string
	}{
		{"plain", 0.5, "ZEC", "0.5000 ZEC"},
		{"default unit", 12.3456, "", "12.35 ZEC"},
		{"thousand", 1500, "ZEC", "1.500 thousand ZEC"},
		{"million", 1234567, "ZEC", "1.235 million ZEC"},
		{"tens of millions", 12345678, "ZEC", "12.35 million ZEC"},
		{"billion", 250e9, "ZEC", "250.0 billion ZEC"},
		{"trillion", 3e12, "BTC", "3.000 trillion BTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatWithUnit(tt.amount, Auto(), tt.unit))
		})
	}
}

func TestParsePrecision(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    Precision
		wantErr bool
	}{
		{"nil", nil, Auto(), false},
		{"auto", "auto", Auto(), false},
		{"auto upper", " AUTO ", Auto(), false},
		{"empty", "", Auto(), false},
		{"numeric string", "4", Fixed(4), false},
		{"int", 2, Fixed(2), false},
		{"int64", int64(3), Fixed(3), false},
		{"uint64", uint64(99), Fixed(8), false},
		{"float", float64(6), Fixed(6), false},
		{"fractional float", 2.5, Precision{}, true},
		{"word", "many", Precision{}, true},
		{"bool", true, Precision{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrecision(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPrecision)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrecisionValue(t *testing.T) {
	assert.Equal(t, "auto", Auto().Value())
	assert.Equal(t, 3, Fixed(3).Value())
	assert.Equal(t, "auto", Auto().String())
	assert.Equal(t, "5", Fixed(5).String())
}

func TestConvert(t *testing.T) {
	rates := rateMap{"USD": 0.025, "EUR": 0, "GBP": math.NaN(), "JPY": -1}
	price := func(currency string, amount float64) detection.ParsedPrice {
		return detection.ParsedPrice{Original: "x", Amount: amount, Currency: currency}
	}

	res, ok := Convert(price("USD", 100), rates, Auto(), "ZEC")
	require.True(t, ok)
	assert.InDelta(t, 2.5, res.Amount, 1e-12)
	assert.Equal(t, "2.50 ZEC", res.Formatted)
	assert.Equal(t, "USD", res.Currency)
	assert.Equal(t, "x", res.Original)

	for _, currency := range []string{"EUR", "GBP", "JPY", "CHF"} {
		t.Run(currency, func(t *testing.T) {
			_, ok := Convert(price(currency, 10), rates, Auto(), "ZEC")
			assert.False(t, ok)
		})
	}

	_, ok = Convert(price("USD", 1), nil, Auto(), "ZEC")
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	_, err := Lookup(rateMap{"USD": math.Inf(1)}, "USD")
	assert.ErrorIs(t, err, ErrNoRate)

	r, err := Lookup(rateMap{"USD": 0.5}, "USD")
	require.NoError(t, err)
	assert.Equal(t, 0.5, r)
}
