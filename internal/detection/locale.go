package detection

import "strings"

// Currency hints derived from a hostname's public suffix.
var suffixCurrencies = map[string]string{
	"ca":     "CAD",
	"uk":     "GBP",
	"co.uk":  "GBP",
	"de":     "EUR",
	"fr":     "EUR",
	"it":     "EUR",
	"es":     "EUR",
	"nl":     "EUR",
	"be":     "EUR",
	"at":     "EUR",
	"ie":     "EUR",
	"pt":     "EUR",
	"fi":     "EUR",
	"jp":     "JPY",
	"co.jp":  "JPY",
	"cn":     "CNY",
	"com.cn": "CNY",
	"au":     "AUD",
	"com.au": "AUD",
	"in":     "INR",
	"co.in":  "INR",
	"br":     "BRL",
	"com.br": "BRL",
	"mx":     "MXN",
	"com.mx": "MXN",
	"kr":     "KRW",
	"co.kr":  "KRW",
	"ch":     "CHF",
}

type ambiguity struct {
	candidates []string
	fallback   string
}

// Resolver picks a currency for symbols shared by several currencies.
type Resolver struct {
	suffixes  map[string]string
	ambiguous map[string]ambiguity
}

// NewResolver returns a resolver with the built-in suffix and symbol tables.
func NewResolver() *Resolver {
	return &Resolver{
		suffixes: suffixCurrencies,
		ambiguous: map[string]ambiguity{
			"$": {candidates: []string{"USD", "CAD", "AUD", "MXN"}, fallback: "USD"},
			"¥": {candidates: []string{"JPY", "CNY"}, fallback: "JPY"},
		},
	}
}

// Ambiguous reports whether symbol needs resolution.
func (r *Resolver) Ambiguous(symbol string) bool {
	_, ok := r.ambiguous[symbol]
	return ok
}

// Hint returns the currency suggested by the hostname's suffix. Two-label
// suffixes such as "co.uk" are checked before single labels.
func (r *Resolver) Hint(hostname string) (string, bool) {
	host := normalizeHost(hostname)
	if host == "" {
		return "", false
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return "", false
	}
	if c, ok := r.suffixes[strings.Join(labels[len(labels)-2:], ".")]; ok {
		return c, true
	}
	c, ok := r.suffixes[labels[len(labels)-1]]
	return c, ok
}

// Resolve returns the currency for an ambiguous symbol on hostname. The
// second result is false when symbol is not ambiguous.
func (r *Resolver) Resolve(symbol, hostname string) (string, bool) {
	a, ok := r.ambiguous[symbol]
	if !ok {
		return "", false
	}
	if hint, ok := r.Hint(hostname); ok {
		for _, c := range a.candidates {
			if c == hint {
				return c, true
			}
		}
	}
	return a.fallback, true
}

func normalizeHost(hostname string) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	host = strings.TrimSuffix(host, ".")
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host, "]") {
		host = host[:i]
	}
	return host
}

// hostMatches reports whether host equals domain or is one of its subdomains.
func hostMatches(host, domain string) bool {
	host = normalizeHost(host)
	domain = normalizeHost(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
