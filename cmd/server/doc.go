// Package main is the entry point for the zentat conversion server.
//
// The server detects fiat prices in HTML documents and rewrites them in the
// target unit. It provides:
//   - One-shot conversion of documents and text
//   - Live sessions that keep a document converted while it is mutated
//   - Rate refresh from CoinGecko and Kraken with a local rate file
//   - User settings stored as JSON, YAML or TOML
//   - Prometheus metrics and per-IP rate limiting
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8000 -rates rates.json -settings settings.yaml
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
