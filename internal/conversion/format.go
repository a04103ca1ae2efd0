package conversion

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultUnit is the target unit appended to formatted amounts.
	DefaultUnit = "ZEC"

	minDecimals   = 2
	maxDecimals   = 8
	targetSigFigs = 4
)

// ErrPrecision is returned for precision values that cannot be decoded.
var ErrPrecision = errors.New("conversion: invalid precision")

// Precision is either automatic or a fixed number of decimals.
type Precision struct {
	Auto     bool
	Decimals int
}

// Auto returns automatic precision.
func Auto() Precision {
	return Precision{Auto: true}
}

// Fixed returns a fixed precision clamped to 0..8 decimals.
func Fixed(decimals int) Precision {
	if decimals < 0 {
		decimals = 0
	}
	if decimals > maxDecimals {
		decimals = maxDecimals
	}
	return Precision{Decimals: decimals}
}

func (p Precision) String() string {
	if p.Auto {
		return "auto"
	}
	return strconv.Itoa(p.Decimals)
}

// Value returns the wire form: "auto" or the decimal count.
func (p Precision) Value() any {
	if p.Auto {
		return "auto"
	}
	return p.Decimals
}

// ParsePrecision decodes "auto", an integer or a numeric string.
func ParsePrecision(v any) (Precision, error) {
	switch x := v.(type) {
	case nil:
		return Auto(), nil
	case Precision:
		return x, nil
	case string:
		s := strings.TrimSpace(strings.ToLower(x))
		if s == "" || s == "auto" {
			return Auto(), nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return Precision{}, fmt.Errorf("%w: %q", ErrPrecision, x)
		}
		return Fixed(n), nil
	case int:
		return Fixed(x), nil
	case int64:
		return Fixed(int(x)), nil
	case uint64:
		return Fixed(int(min(x, maxDecimals))), nil
	case float64:
		if x != math.Trunc(x) {
			return Precision{}, fmt.Errorf("%w: %v", ErrPrecision, x)
		}
		return Fixed(int(x)), nil
	default:
		return Precision{}, fmt.Errorf("%w: %T", ErrPrecision, v)
	}
}

// FormatAmount renders amount with fixed or automatic decimals. Automatic
// precision shows at least 2 decimals and expands toward 4 significant
// figures, capped at 8.
func FormatAmount(amount float64, p Precision) string {
	if !p.Auto {
		return fixed(amount, p.Decimals)
	}
	if amount == 0 {
		return "0.00"
	}
	return fixed(amount, autoDecimals(amount))
}

func autoDecimals(amount float64) int {
	abs := math.Abs(amount)
	decimals := minDecimals
	if abs < 1 {
		leadingZeros := -int(math.Floor(math.Log10(abs))) - 1
		decimals = max(minDecimals, leadingZeros+targetSigFigs)
	} else {
		intDigits := int(math.Floor(math.Log10(math.Floor(abs)))) + 1
		decimals = max(minDecimals, targetSigFigs-intDigits)
	}
	return min(decimals, maxDecimals)
}

var magnitudes = []struct {
	threshold float64
	name      string
}{
	{1e12, "trillion"},
	{1e9, "billion"},
	{1e6, "million"},
	{1e3, "thousand"},
}

// FormatWithUnit renders amount followed by unit, rescaling large amounts
// with a magnitude word: 1234567 becomes "1.235 million ZEC".
func FormatWithUnit(amount float64, p Precision, unit string) string {
	if unit == "" {
		unit = DefaultUnit
	}
	abs := math.Abs(amount)
	for _, m := range magnitudes {
		if abs >= m.threshold {
			return formatScaled(amount/m.threshold) + " " + m.name + " " + unit
		}
	}
	return FormatAmount(amount, p) + " " + unit
}

// formatScaled keeps 3-4 significant figures for a rescaled value.
func formatScaled(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 100:
		return fixed(v, 1)
	case abs >= 10:
		return fixed(v, 2)
	default:
		return fixed(v, 3)
	}
}

func fixed(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(int32(decimals))
}
