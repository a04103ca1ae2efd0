// Package rates holds the currency rate table consumed by conversion.
//
// A Table maps currency codes to the amount of target unit one unit of the
// currency buys, with a source label and a freshness timestamp. Its JSON
// form is {"rates": {...}, "updatedAt": <epoch-ms>, "source": "..."}.
//
// Tables come from a file or from one pass over the public ticker sources
// (CoinGecko, then Kraken). Fetching never retries; the first source that
// answers with usable rates wins.
//
// Example Usage:
//
//	store := rates.NewStore(rates.Table{})
//	sources, _ := rates.NewSources(rates.NewClient(rates.DefaultClientConfig()), "coingecko", "kraken")
//	table, err := store.Refresh(ctx, sources...)
package rates
