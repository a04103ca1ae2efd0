// Package middleware provides HTTP middleware for the zentat API.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting with idle client eviction
//   - GlobalRateLimit: One token bucket shared by every client
//   - RequestID: Propagates or assigns X-Request-ID
//   - RequestLogger: One structured zap line per request
//
// Rejected requests get a 429 JSON body and a Retry-After header.
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
