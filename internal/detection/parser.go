package detection

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ParsedPrice is one money-like substring found in a text. Start and End are
// byte offsets into the exact text that was parsed.
type ParsedPrice struct {
	Original string  `json:"original"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
}

// Len returns the byte length of the matched span.
func (p ParsedPrice) Len() int {
	return p.End - p.Start
}

// Parser finds prices in free text.
type Parser struct {
	matchers []Matcher
	resolver *Resolver
	// literals maps a currency to every symbol or code that names it.
	literals map[string][]string
}

// NewParser creates a parser over the given matchers. With no matchers the
// built-in table is used.
func NewParser(matchers ...Matcher) *Parser {
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}
	literals := make(map[string][]string)
	for _, m := range matchers {
		if len(literals[m.Currency]) == 0 {
			literals[m.Currency] = append(literals[m.Currency], m.Currency)
		}
		literals[m.Currency] = append(literals[m.Currency], m.Symbols...)
	}
	return &Parser{
		matchers: matchers,
		resolver: NewResolver(),
		literals: literals,
	}
}

var defaultParser = NewParser()

// ParsePrice parses text with the built-in matcher table.
func ParsePrice(text string, enabled []string, hostname string) []ParsedPrice {
	return defaultParser.Parse(text, enabled, hostname)
}

type hit struct {
	ParsedPrice
	literal bool
}

// Parse returns the non-overlapping prices in text whose currency is
// enabled, ordered by position.
func (p *Parser) Parse(text string, enabled []string, hostname string) []ParsedPrice {
	if text == "" || len(enabled) == 0 {
		return nil
	}

	var hits []hit
	for _, m := range p.matchers {
		if !m.Applies(hostname) {
			continue
		}
		for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
			pp, ok := p.extract(text, loc, m, hostname)
			if !ok {
				continue
			}
			hits = append(hits, hit{ParsedPrice: pp, literal: p.literallyNamed(pp.Original, pp.Currency)})
		}
	}

	kept := arbitrate(hits)
	unifyCurrencies(kept)

	allowed := make(map[string]bool, len(enabled))
	for _, c := range enabled {
		allowed[strings.ToUpper(strings.TrimSpace(c))] = true
	}

	var out []ParsedPrice
	for _, h := range kept {
		if allowed[h.Currency] {
			out = append(out, h.ParsedPrice)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// arbitrate keeps a non-overlapping subset: an earlier start wins, and at an
// equal start the longer span wins. An exact tie goes to the hit whose
// currency is literally named in the substring.
func arbitrate(hits []hit) []hit {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		return a.literal && !b.literal
	})

	var kept []hit
	for _, h := range hits {
		if n := len(kept); n > 0 && h.Start < kept[n-1].End {
			continue
		}
		kept = append(kept, h)
	}
	return kept
}

// unifyCurrencies gives identical substrings the currency whose symbol
// literally appears in them.
func unifyCurrencies(hits []hit) {
	preferred := make(map[string]string)
	for _, h := range hits {
		if h.literal {
			if _, ok := preferred[h.Original]; !ok {
				preferred[h.Original] = h.Currency
			}
		}
	}
	for i := range hits {
		if c, ok := preferred[hits[i].Original]; ok && !hits[i].literal {
			hits[i].Currency = c
			hits[i].literal = true
		}
	}
}

func (p *Parser) literallyNamed(original, currency string) bool {
	upper := strings.ToUpper(original)
	for _, s := range p.literals[currency] {
		if strings.Contains(upper, strings.ToUpper(s)) {
			return true
		}
	}
	return false
}

func (p *Parser) extract(text string, loc []int, m Matcher, hostname string) (ParsedPrice, bool) {
	if truncated(text, loc[1]) {
		return ParsedPrice{}, false
	}

	var numeric []string
	var symbol string
	for g := 1; 2*g+1 < len(loc); g++ {
		if loc[2*g] < 0 {
			continue
		}
		group := text[loc[2*g]:loc[2*g+1]]
		if group == "" {
			continue
		}
		if strings.ContainsFunc(group, unicode.IsDigit) {
			numeric = append(numeric, group)
		} else if symbol == "" {
			symbol = group
		}
	}
	if len(numeric) == 0 {
		return ParsedPrice{}, false
	}

	var amount decimal.Decimal
	var err error
	if m.Combine && len(numeric) == 2 {
		amount, err = combineCents(numeric[0], numeric[1])
	} else {
		amount, err = parseDecimal(numeric[0])
	}
	if err != nil {
		return ParsedPrice{}, false
	}

	currency := m.Currency
	if resolved, ok := p.resolver.Resolve(symbol, hostname); ok {
		currency = resolved
	}

	start, end := trimSpan(text, loc[0], loc[1])
	return ParsedPrice{
		Original: text[start:end],
		Amount:   amount.InexactFloat64(),
		Currency: currency,
		Start:    start,
		End:      end,
	}, true
}

// combineCents joins "149" and "5" into 149.05.
func combineCents(units, cents string) (decimal.Decimal, error) {
	whole, err := parseDecimal(units)
	if err != nil {
		return decimal.Zero, err
	}
	if len(cents) < 2 {
		cents = strings.Repeat("0", 2-len(cents)) + cents
	}
	c, err := decimal.NewFromString(cents)
	if err != nil {
		return decimal.Zero, ErrParseFailure
	}
	return whole.Add(c.Shift(-2)), nil
}

// truncated reports whether a match ending at end stops inside a run of
// digits, as in "$12345.678" where only "$12345.67" fits the number form.
func truncated(text string, end int) bool {
	return end > 0 && end < len(text) && isDigit(text[end-1]) && isDigit(text[end])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func trimSpan(text string, start, end int) (int, int) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end
}
