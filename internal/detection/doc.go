// Package detection finds prices in text and in markup trees.
//
// The package is organized leaf-first:
//   - numeral: locale-ambiguous numerals ("1.234,56", "69k", "2 miljoen") to amounts
//   - locale: ambiguous symbols ("$", "¥") resolved from the hostname's suffix
//   - patterns: per-currency matchers plus site-restricted euro conventions
//   - parser: match collection, overlap arbitration and currency filtering
//   - filter: money-shaped pre-filter and non-price phrase shapes
//   - walker: candidate element selection over a markup tree
//   - sites: registry of structured price containers keyed by host patterns
//
// Example Usage:
//
//	prices := detection.ParsePrice("Price: $19.99", []string{"USD"}, "example.com")
//	// prices[0].Amount == 19.99, prices[0].Currency == "USD"
package detection
