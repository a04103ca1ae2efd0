// Package config provides 12-factor configuration management for the zentat server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Sync: Poll interval, frame delay, candidate text bound, target unit
//   - Rates: Rate file, freshness window, upstream sources and timeout
//   - Settings: User settings file
//   - HTML: Sanitizing and size limit for loaded documents
//   - Session: Live session limit
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SYNC_POLL_INTERVAL, SYNC_FRAME_DELAY, SYNC_MAX_TEXT_LENGTH, SYNC_UNIT
//   - RATES_FILE, RATES_MAX_AGE, RATES_SOURCES, RATES_TIMEOUT
//   - SETTINGS_FILE, HTML_SANITIZE, HTML_MAX_BYTES, SESSION_MAX
package config
