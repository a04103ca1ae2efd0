package detection

import (
	"regexp"
	"strings"
)

// Whitespace as it appears between a symbol and its amount, including the
// no-break spaces used as European grouping separators.
const ws = `[\s\x{00A0}\x{202F}]`

// num matches 1,234.56 / 1.234,56 / 1 234 / 1234.56 / 69k / 2.5M, plus a
// trailing ",-" or ".-" for whole amounts, which stays outside the group.
// The first branch requires at least one thousands group so that a plain
// "1234.56" is not cut short at "123".
const num = `(\d{1,3}(?:[,.\s\x{00A0}\x{202F}]\d{3})+(?:[.,]\d{1,2})?(?:[kKmMBT]\b)?|\d+(?:[.,]\d{1,2})?(?:[kKmMBT]\b)?)(?:[.,]-)?`

// Matcher recognizes the price forms of one currency.
type Matcher struct {
	Currency string
	Symbols  []string
	// Hosts restricts the matcher to these domains and their subdomains.
	Hosts []string
	// Combine joins a whole-unit group and a cents group into one amount.
	Combine bool

	re *regexp.Regexp
}

// NewMatcher builds the four symbol/code forms for a currency:
// symbol+number, number+symbol, CODE+number and number+CODE.
func NewMatcher(currency string, symbols ...string) Matcher {
	quoted := make([]string, len(symbols))
	for i, s := range symbols {
		quoted[i] = regexp.QuoteMeta(s)
	}
	sym := strings.Join(quoted, "|")
	code := `(?i:` + regexp.QuoteMeta(currency) + `)`

	expr := `(?:(` + sym + `)` + ws + `*` + num +
		`|` + num + ws + `*(` + sym + `)` +
		`|\b(` + code + `)\b` + ws + `*` + num +
		`|` + num + ws + `*\b(` + code + `)\b)`

	return Matcher{
		Currency: currency,
		Symbols:  symbols,
		re:       regexp.MustCompile(expr),
	}
}

// NewRestrictedMatcher builds a matcher from a raw expression that only runs
// on the given hosts.
func NewRestrictedMatcher(currency, expr string, hosts []string, symbols ...string) Matcher {
	return Matcher{
		Currency: currency,
		Symbols:  symbols,
		Hosts:    hosts,
		re:       regexp.MustCompile(expr),
	}
}

// Applies reports whether the matcher may run on hostname. Restricted
// matchers never run without a hostname.
func (m Matcher) Applies(hostname string) bool {
	if len(m.Hosts) == 0 {
		return true
	}
	if hostname == "" {
		return false
	}
	for _, h := range m.Hosts {
		if hostMatches(hostname, h) {
			return true
		}
	}
	return false
}

// Sites that price in EUR without a currency sign.
var euroRegionalSites = []string{"coolblue.nl", "coolblue.be", "bol.com", "mediamarkt.nl", "mediamarkt.be"}

const (
	// "339,-" or "1.299,-", tolerant of line breaks between the parts.
	euroDashExpr = `(\d{1,3}(?:\.\d{3})*)\s*,\s*-`
	// "247,11 excl. btw" / "247,11 incl. btw"
	euroTaxExpr = `(?i)(\d{1,3}(?:\.\d{3})*(?:,\d{1,2})?)\s*(?:excl|incl)\.?\s*btw`
	// "149 euro" or "'149' euro en '00' cent"
	euroWordExpr = `(?i)['"]?(\d{1,3}(?:\.\d{3})*(?:,\d{1,2})?)['"]?\s*euro(?:\s+en\s+['"]?(\d{1,2})['"]?\s*cent)?`
	// "149,00" with no sign at all.
	euroBareExpr = `\b(\d{1,3}(?:\.\d{3})*,\d{2})\b`
)

// DefaultMatchers returns the built-in matcher table.
func DefaultMatchers() []Matcher {
	return []Matcher{
		NewMatcher("USD", "$", "US$"),
		NewMatcher("EUR", "€"),
		NewRestrictedMatcher("EUR", euroDashExpr, euroRegionalSites, ",-"),
		NewRestrictedMatcher("EUR", euroTaxExpr, euroRegionalSites, "btw"),
		withCombine(NewRestrictedMatcher("EUR", euroWordExpr, euroRegionalSites, "euro")),
		NewRestrictedMatcher("EUR", euroBareExpr, []string{"bol.com"}),
		NewMatcher("GBP", "£"),
		NewMatcher("JPY", "¥", "円"),
		NewMatcher("CAD", "C$", "CA$"),
		NewMatcher("AUD", "A$", "AU$"),
		NewMatcher("CHF", "Fr.", "CHF"),
		NewMatcher("CNY", "CN¥", "元"),
		NewMatcher("KRW", "₩"),
		NewMatcher("INR", "₹"),
		NewMatcher("BRL", "R$"),
		NewMatcher("MXN", "MX$"),
	}
}

func withCombine(m Matcher) Matcher {
	m.Combine = true
	return m
}

// Codes lists the currency codes covered by a matcher table, in table order.
func Codes(matchers []Matcher) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range matchers {
		if !seen[m.Currency] {
			seen[m.Currency] = true
			out = append(out, m.Currency)
		}
	}
	return out
}
