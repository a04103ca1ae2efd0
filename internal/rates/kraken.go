package rates

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// KrakenURL is the public ticker endpoint.
const KrakenURL = "https://api.kraken.com/0/public/Ticker"

type krakenTicker struct {
	// C is the last closed trade: [price, lot volume].
	C []string `json:"c"`
}

type krakenResponse struct {
	Error  []string                `json:"error"`
	Result map[string]krakenTicker `json:"result"`
}

// Kraken reads last-trade prices for a fixed set of pairs.
type Kraken struct {
	client *resty.Client
	URL    string
	// Pairs maps currency codes to Kraken pair names.
	Pairs map[string]string
	now   func() time.Time
}

// NewKraken creates a Kraken source for ZEC/USD and ZEC/EUR.
func NewKraken(client *resty.Client) *Kraken {
	return &Kraken{
		client: client,
		URL:    KrakenURL,
		Pairs:  map[string]string{"USD": "ZECUSD", "EUR": "ZECEUR"},
		now:    time.Now,
	}
}

// Name implements Source.
func (k *Kraken) Name() string { return "kraken" }

// Fetch implements Source.
func (k *Kraken) Fetch(ctx context.Context) (Table, error) {
	pairs := make([]string, 0, len(k.Pairs))
	for _, p := range k.Pairs {
		pairs = append(pairs, p)
	}

	var body krakenResponse
	resp, err := k.client.R().
		SetContext(ctx).
		SetQueryParam("pair", strings.Join(pairs, ",")).
		SetResult(&body).
		Get(k.URL)
	if err != nil {
		return Table{}, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return Table{}, fmt.Errorf("api error: %d", resp.StatusCode())
	}
	if len(body.Error) > 0 {
		return Table{}, fmt.Errorf("api error: %s", strings.Join(body.Error, ", "))
	}

	rates := make(map[string]float64, len(k.Pairs))
	for currency, pair := range k.Pairs {
		ticker, ok := body.Result[pair]
		if !ok {
			// Kraken prefixes some pair keys with X.
			ticker, ok = body.Result["X"+pair]
		}
		if !ok || len(ticker.C) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(ticker.C[0], 64)
		if err != nil {
			continue
		}
		if r, ok := reciprocal(price); ok {
			rates[currency] = r
		}
	}
	if len(rates) == 0 {
		return Table{}, ErrNoRates
	}
	return Table{Rates: rates, UpdatedAt: k.now(), Source: k.Name()}, nil
}
