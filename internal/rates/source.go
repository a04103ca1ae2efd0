package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

// ErrNoRates is returned when a source answers without any usable rate.
var ErrNoRates = errors.New("rates: no rates returned")

// Source fetches a rate table once. Sources never retry.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Table, error)
}

// Fetch asks each source in order and returns the first non-empty table.
// When every source fails the joined errors are returned.
func Fetch(ctx context.Context, sources ...Source) (Table, error) {
	if len(sources) == 0 {
		return Table{}, fmt.Errorf("rates: no sources configured")
	}
	var errs []error
	for _, s := range sources {
		t, err := s.Fetch(ctx)
		if err == nil && t.Empty() {
			err = ErrNoRates
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return t, nil
	}
	return Table{}, errors.Join(errs...)
}

// ClientConfig configures the HTTP client shared by sources.
type ClientConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// DefaultClientConfig returns the client settings used by the service.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:   10 * time.Second,
		UserAgent: "zentat/1.0",
	}
}

// NewClient creates a resty client without retries that decodes with sonic.
func NewClient(cfg ClientConfig) *resty.Client {
	c := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent)
	c.JSONMarshal = sonic.Marshal
	c.JSONUnmarshal = sonic.Unmarshal
	return c
}

// NewSources builds sources by name ("coingecko", "kraken") in order.
func NewSources(client *resty.Client, names ...string) ([]Source, error) {
	var out []Source
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
			continue
		case "coingecko":
			out = append(out, NewCoinGecko(client))
		case "kraken":
			out = append(out, NewKraken(client))
		default:
			return nil, fmt.Errorf("unknown rate source %q", name)
		}
	}
	return out, nil
}

// reciprocal converts a price in fiat per target unit to a rate in target
// unit per fiat. Non-positive prices yield false.
func reciprocal(price float64) (float64, bool) {
	if !(price > 0) {
		return 0, false
	}
	return 1 / price, true
}
