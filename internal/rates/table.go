package rates

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// DefaultMaxAge is the age after which a table counts as stale.
const DefaultMaxAge = 10 * time.Minute

// Table maps currency codes to the amount of target unit bought by one unit
// of that currency. It is read-only once published.
type Table struct {
	Rates     map[string]float64
	UpdatedAt time.Time
	Source    string
}

// Rate returns a usable rate for currency. Zero, negative, NaN and missing
// entries are unavailable.
func (t Table) Rate(currency string) (float64, bool) {
	r, ok := t.Rates[strings.ToUpper(currency)]
	if !ok || math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return 0, false
	}
	return r, true
}

// Empty reports whether the table holds no rates.
func (t Table) Empty() bool {
	return len(t.Rates) == 0
}

// Currencies returns the codes with a rate, sorted.
func (t Table) Currencies() []string {
	out := make([]string, 0, len(t.Rates))
	for c := range t.Rates {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// IsStale reports whether the table is older than maxAge at now. A table
// that was never updated is always stale.
func (t Table) IsStale(now time.Time, maxAge time.Duration) bool {
	if t.UpdatedAt.IsZero() {
		return true
	}
	return now.Sub(t.UpdatedAt) > maxAge
}

// Price returns how many units of currency one target unit costs, the
// inverse of Rate.
func (t Table) Price(currency string) (float64, bool) {
	r, ok := t.Rate(currency)
	if !ok {
		return 0, false
	}
	return 1 / r, true
}

// wireTable is the JSON form shared with rate producers.
type wireTable struct {
	Rates     map[string]float64 `json:"rates"`
	UpdatedAt int64              `json:"updatedAt"`
	Source    string             `json:"source"`
}

// UpdatedAtMillis returns UpdatedAt in epoch milliseconds, or 0 for a table
// that was never fetched.
func (t Table) UpdatedAtMillis() int64 {
	if t.UpdatedAt.IsZero() {
		return 0
	}
	return t.UpdatedAt.UnixMilli()
}

// MarshalJSON encodes the table with an epoch-millisecond timestamp.
func (t Table) MarshalJSON() ([]byte, error) {
	w := wireTable{Rates: t.Rates, UpdatedAt: t.UpdatedAtMillis(), Source: t.Source}
	if w.Rates == nil {
		w.Rates = map[string]float64{}
	}
	return sonic.Marshal(w)
}

// UnmarshalJSON decodes the wire form. Codes are upper-cased.
func (t *Table) UnmarshalJSON(data []byte) error {
	var w wireTable
	if err := sonic.Unmarshal(data, &w); err != nil {
		return err
	}
	t.Rates = make(map[string]float64, len(w.Rates))
	for c, r := range w.Rates {
		t.Rates[strings.ToUpper(c)] = r
	}
	t.Source = w.Source
	t.UpdatedAt = time.Time{}
	if w.UpdatedAt > 0 {
		t.UpdatedAt = time.UnixMilli(w.UpdatedAt)
	}
	return nil
}
