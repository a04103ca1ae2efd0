package detection

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrParseFailure is returned when a token follows no known numeral convention.
var ErrParseFailure = errors.New("detection: unparseable amount")

// Spelled-out multipliers in English, French, German, Dutch, Spanish,
// Portuguese and Italian. Matched only at the end of the token.
var wordMultipliers = map[string]int64{
	"hundred thousand": 100_000,

	"thousand": 1_000,
	"mille":    1_000, // FR, IT
	"tausend":  1_000, // DE
	"duizend":  1_000, // NL
	"mil":      1_000, // ES, PT

	"million": 1_000_000,
	"millón":  1_000_000, // ES
	"milhão":  1_000_000, // PT
	"milione": 1_000_000, // IT
	"miljoen": 1_000_000, // NL

	"billion":  1_000_000_000,
	"milliard": 1_000_000_000, // FR, DE
	"miljard":  1_000_000_000, // NL
	"miliardo": 1_000_000_000, // IT

	"trillion": 1_000_000_000_000,
	"bilhão":   1_000_000_000_000, // PT
	"biljoen":  1_000_000_000_000, // NL
}

var suffixMultipliers = map[byte]int64{
	'k': 1_000,
	'K': 1_000,
	'm': 1_000_000,
	'M': 1_000_000,
	'B': 1_000_000_000,
	'T': 1_000_000_000_000,
}

var (
	wordMultiplierPattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(hundred\s+thousand|thousand|mille|tausend|duizend|mil|million|millón|milhão|milione|miljoen|billion|milliard|miljard|miliardo|trillion|bilhão|biljoen)\s*$`)
	plainDecimal          = regexp.MustCompile(`^(?:\d+\.?\d*|\.\d+)$`)
)

// ParseNumber converts a numeral token such as "1.234,56", "69k" or
// "2,5 miljoen" into its amount.
func ParseNumber(token string) (float64, error) {
	d, err := parseDecimal(token)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func parseDecimal(token string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(token)
	multiplier := decimal.NewFromInt(1)

	if loc := wordMultiplierPattern.FindStringSubmatchIndex(cleaned); loc != nil {
		word := strings.ToLower(strings.Join(strings.Fields(cleaned[loc[2]:loc[3]]), " "))
		if factor, ok := wordMultipliers[word]; ok {
			multiplier = decimal.NewFromInt(factor)
			cleaned = cleaned[:loc[2]]
		}
	}

	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cleaned)

	if n := len(cleaned); n > 0 {
		if factor, ok := suffixMultipliers[cleaned[n-1]]; ok {
			multiplier = multiplier.Mul(decimal.NewFromInt(factor))
			cleaned = cleaned[:n-1]
		}
	}

	cleaned = normalizeSeparators(cleaned)
	if !plainDecimal.MatchString(cleaned) {
		return decimal.Zero, ErrParseFailure
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.IsNegative() {
		return decimal.Zero, ErrParseFailure
	}
	return d.Mul(multiplier), nil
}

// normalizeSeparators decides which of ',' and '.' is the decimal point and
// returns the token with only '.' as decimal point and no grouping.
func normalizeSeparators(s string) string {
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")

	switch {
	case commas > 1 && dots == 0:
		return strings.ReplaceAll(s, ",", "")
	case dots > 1 && commas == 0:
		return strings.ReplaceAll(s, ".", "")
	case dots > 1 && commas == 1:
		return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
	case commas > 1 && dots == 1:
		return strings.ReplaceAll(s, ",", "")
	}

	if commas+dots == 1 {
		sep := strings.IndexAny(s, ",.")
		if tail := s[sep+1:]; len(tail) == 3 && isDigits(tail) {
			return s[:sep] + tail
		}
	}

	if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
		return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
