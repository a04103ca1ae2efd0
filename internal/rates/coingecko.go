package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// CoinGeckoURL is the public simple-price endpoint.
const CoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price"

// FiatCurrencies are the currencies requested from ticker sources.
var FiatCurrencies = []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "CHF", "CNY", "KRW", "INR", "BRL", "MXN"}

// CoinGecko reads fiat prices of the target coin and inverts them.
type CoinGecko struct {
	client *resty.Client
	URL    string
	CoinID string
	now    func() time.Time
}

// NewCoinGecko creates a CoinGecko source for zcash.
func NewCoinGecko(client *resty.Client) *CoinGecko {
	return &CoinGecko{client: client, URL: CoinGeckoURL, CoinID: "zcash", now: time.Now}
}

// Name implements Source.
func (c *CoinGecko) Name() string { return "coingecko" }

// Fetch implements Source.
func (c *CoinGecko) Fetch(ctx context.Context) (Table, error) {
	var body map[string]map[string]float64
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           c.CoinID,
			"vs_currencies": strings.ToLower(strings.Join(FiatCurrencies, ",")),
		}).
		SetResult(&body).
		Get(c.URL)
	if err != nil {
		return Table{}, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return Table{}, fmt.Errorf("api error: %d", resp.StatusCode())
	}

	prices, ok := body[c.CoinID]
	if !ok {
		return Table{}, fmt.Errorf("no %s price data", c.CoinID)
	}

	rates := make(map[string]float64, len(prices))
	for currency, price := range prices {
		if r, ok := reciprocal(price); ok {
			rates[strings.ToUpper(currency)] = r
		}
	}
	return Table{Rates: rates, UpdatedAt: c.now(), Source: c.Name()}, nil
}
